// Copyright 2025 buildra LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rewrite

import (
	"context"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

// 👀 Preview computes what RewriteFile would change without touching the
// file or taking a snapshot. The returned diff is colorized for terminals.
func (rw *Rewriter) Preview(ctx context.Context, path string) (diff string, changes int, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", 0, errors.Errorf("reading file: %w", err)
	}

	rewritten, _, total := rw.catalog.Apply(content)
	if total == 0 {
		return "", 0, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(content), string(rewritten), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	return dmp.DiffPrettyText(diffs), total, nil
}
