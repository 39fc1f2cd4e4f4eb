// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

type streams struct {
	out io.Writer
	err io.Writer
}

func run(args []string) error {
	root := newRootCmd(streams{out: os.Stdout, err: os.Stderr})
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pipex",
		Short:         "Send HTTP requests through a pipex client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	cmd.AddCommand(
		newRequestCmd(s),
		newConfigCmd(s),
		newJWTCmd(s),
	)
	return cmd
}
