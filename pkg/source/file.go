// This file is part of stakemap (https://github.com/spezifisch/stakemap).
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

package source

import (
	"context"

	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/poi"
)

// FileClient answers bounding box queries from dumped API responses
type FileClient struct {
	records []poi.RawRecord
}

// NewFileClient reads all files up front
func NewFileClient(files []string) (*FileClient, error) {
	records, err := poi.ReadFiles(files)
	if err != nil {
		return nil, err
	}
	return &FileClient{records: records}, nil
}

// Fetch implements BoundingBoxQueryClient. Records without a usable position are
// passed on so that the caller skips them like API results.
func (c *FileClient) Fetch(ctx context.Context, bbox geo.BoundingBox) ([]poi.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]poi.RawRecord, 0, len(c.records))
	for _, raw := range c.records {
		rec, err := raw.Parse()
		if err == nil && !bbox.Contains(rec.Position) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}
