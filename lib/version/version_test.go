// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit = "abc1234"
	GitDirty = "false"
	if got := Info(); !strings.Contains(got, "(abc1234,") {
		t.Errorf("Info() = %q, want clean commit", got)
	}

	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "(abc1234-dirty,") {
		t.Errorf("Info() = %q, want dirty marker", got)
	}
}

func TestPrint(t *testing.T) {
	var buffer bytes.Buffer
	Print(&buffer, "timeline-capture")

	output := buffer.String()
	if !strings.HasPrefix(output, "timeline-capture "+Version) {
		t.Errorf("Print output %q does not start with program and version", output)
	}
	if !strings.Contains(output, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Print output %q is missing the platform", output)
	}
}
