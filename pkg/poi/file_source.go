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
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FileSource is a read-only reader for dumped bounding box API responses.
// Every file holds one JSON array of raw records.
type FileSource struct {
	RunError error
	files    []string
	output   chan *RawRecord
	cancel   chan bool
}

// NewFileSource returns a ready-to-use FileSource object
func NewFileSource(files []string, output chan *RawRecord, cancel chan bool) (src *FileSource, err error) {
	err = checkFiles(files)
	if err != nil {
		return
	}

	return &FileSource{
		files:  files,
		output: output,
		cancel: cancel,
	}, nil
}

func checkFiles(files []string) (err error) {
	for _, file := range files {
		var fi os.FileInfo
		fi, err = os.Stat(file)
		if err != nil {
			return
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("'%s' is not a file", file)
		}
	}
	return
}

func expectDelim(d *json.Decoder, want json.Delim) error {
	tok, err := d.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return errors.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func (src *FileSource) signalDone() {
	log.Debug("file source done signal")
	src.output <- nil
}

// Run parses all files, sending every raw record to the output channel.
// A nil record marks the end of the stream.
func (src *FileSource) Run() (err error) {
	src.RunError = nil
	defer src.signalDone()
	run := true
	log.WithField("files", src.files).Debug("starting file source")
	for _, file := range src.files {
		err = src.runFile(file, &run)
		if err != nil {
			src.RunError = err
			return
		}
		if !run {
			break
		}
	}
	log.Debug("file source returns ok")
	return
}

func (src *FileSource) runFile(file string, run *bool) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 65536)
	d := json.NewDecoder(br)

	if err = expectDelim(d, '['); err != nil {
		log.WithError(err).WithField("file", file).Error("not a record array")
		return err
	}

	for d.More() {
		// check for cancel signal
		select {
		case <-src.cancel:
			*run = false
		default:
		}
		if !*run {
			return nil
		}

		var rec RawRecord
		if err = d.Decode(&rec); err != nil {
			log.WithError(err).WithField("file", file).Error("record decode failed")
			return err
		}

		src.output <- &rec
	}
	return expectDelim(d, ']')
}

// ReadFiles reads every record of the given files at once.
func ReadFiles(files []string) ([]RawRecord, error) {
	output := make(chan *RawRecord, 64)
	src, err := NewFileSource(files, output, make(chan bool))
	if err != nil {
		return nil, err
	}

	go src.Run()

	var records []RawRecord
	for rec := range output {
		if rec == nil {
			break
		}
		records = append(records, *rec)
	}
	return records, src.RunError
}
