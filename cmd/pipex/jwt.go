// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/gogama/pipex/tokenstore"
	"github.com/spf13/cobra"
)

func newJWTCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "jwt TOKEN",
		Short: "Print the expiry and claims of a JWT without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := tokenstore.FromJWT(args[0])
			if err != nil {
				return err
			}
			if rec.Meta.ExpiresAt.IsZero() {
				fmt.Fprintln(s.out, "expires: never")
			} else {
				exp := rec.Meta.ExpiresAt.UTC()
				state := "valid"
				if !time.Now().Before(exp) {
					state = "expired"
				}
				fmt.Fprintf(s.out, "expires: %s (%s)\n", exp.Format(time.RFC3339), state)
			}
			names := make([]string, 0, len(rec.Meta.Extra))
			for name := range rec.Meta.Extra {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(s.out, "%s: %v\n", name, rec.Meta.Extra[name])
			}
			return nil
		},
	}
}
