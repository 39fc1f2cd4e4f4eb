// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from pipex request dispatch as
// transient or non-transient. This is handy for writing retry deciders,
// and for other purposes such as bucketing error metrics.
//
// Categorize understands the classified errors of package request as
// well as raw transport errors, so it may be used both inside and
// outside a pipeline.
package transient
