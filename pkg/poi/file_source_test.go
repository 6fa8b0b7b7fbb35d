// This file is part of stakemap (https://github.com/spezifisch/stakemap).
// Based on pogo-planner (https://github.com/spezifisch/pogo-planner).
// Copyright (C) 2021-2026 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package poi

import (
	"reflect"
	"testing"
)

func TestFileSource_Run(t *testing.T) {
	type fields struct {
		files  []string
		output chan *RawRecord
		cancel chan bool
	}
	tests := []struct {
		name    string
		fields  fields
		wantErr bool
	}{
		{
			name: "no file",
			fields: fields{
				files:  []string{""},
				output: make(chan *RawRecord, 1),
				cancel: make(chan bool),
			},
			wantErr: true,
		},
		{
			name: "non-existent file",
			fields: fields{
				files:  []string{"../../testdata/nonexistent_foo"},
				output: make(chan *RawRecord, 1),
				cancel: make(chan bool),
			},
			wantErr: true,
		},
		{
			name: "invalid json",
			fields: fields{
				files:  []string{"../../testdata/invalid.json"},
				output: make(chan *RawRecord, 4),
				cancel: make(chan bool),
			},
			wantErr: true,
		},
		{
			name: "test file",
			fields: fields{
				files:  []string{"../../testdata/pois.json"},
				output: make(chan *RawRecord, 8),
				cancel: make(chan bool),
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &FileSource{
				files:  tt.fields.files,
				output: tt.fields.output,
				cancel: tt.fields.cancel,
			}
			if err := src.Run(); (err != nil) != tt.wantErr {
				t.Errorf("FileSource.Run() error = %v", err)
			}
		})
	}
}

func TestNewFileSource(t *testing.T) {
	goodFiles := []string{"../../testdata/pois.json"}
	goodOutput := make(chan *RawRecord)
	goodCancel := make(chan bool)

	type args struct {
		files  []string
		output chan *RawRecord
		cancel chan bool
	}
	tests := []struct {
		name    string
		args    args
		wantSrc *FileSource
		wantErr bool
	}{
		{
			name: "non-existent files",
			args: args{
				files:  []string{"foo", "bar", ""},
				output: goodOutput,
				cancel: goodCancel,
			},
			wantErr: true,
		},
		{
			name: "directory as file",
			args: args{
				files:  []string{"../../testdata"},
				output: goodOutput,
				cancel: goodCancel,
			},
			wantErr: true,
		},
		{
			name: "good file",
			args: args{
				files:  goodFiles,
				output: goodOutput,
				cancel: goodCancel,
			},
			wantSrc: &FileSource{
				files:  goodFiles,
				output: goodOutput,
				cancel: goodCancel,
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSrc, err := NewFileSource(tt.args.files, tt.args.output, tt.args.cancel)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFileSource() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(gotSrc, tt.wantSrc) {
				t.Errorf("NewFileSource() = %v, want %v", gotSrc, tt.wantSrc)
			}
		})
	}
}

func TestReadFiles(t *testing.T) {
	raws, err := ReadFiles([]string{"../../testdata/pois.json"})
	if err != nil {
		t.Fatalf("ReadFiles() error = %v", err)
	}
	if len(raws) != 4 {
		t.Fatalf("ReadFiles() got %d records, want 4", len(raws))
	}

	records, skipped := ParseAll(raws)
	if skipped != 1 || len(records) != 3 {
		t.Errorf("ParseAll() = %d records, %d skipped, want 3 and 1", len(records), skipped)
	}
	if records[1].ID != "0x0b9f0e5d2a0c1e7f2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192" {
		t.Errorf("unexpected record order: %v", records)
	}
}
