// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/gogama/pipex"
	"github.com/gogama/pipex/config"
	"github.com/gogama/pipex/logging"
	"github.com/gogama/pipex/request"
	"github.com/spf13/cobra"
)

type requestOptions struct {
	cfgPath  string
	headers  []string
	data     string
	include  bool
	verbose  bool
	timeout  time.Duration
	respType string
}

func newRequestCmd(s streams) *cobra.Command {
	var opts requestOptions
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Send one request and print the response body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runRequest(ctx, s, opts, args[0], args[1])
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "config yaml path")
	fs.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	fs.StringVarP(&opts.data, "data", "d", "", "request body, or @file to read it from a file")
	fs.BoolVarP(&opts.include, "include", "i", false, "print the status line and response headers")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log request events to stderr")
	fs.DurationVar(&opts.timeout, "timeout", 0, "request timeout, overriding the configuration")
	fs.StringVar(&opts.respType, "type", "", "response type: json, yaml, text, bytes or raw")
	return cmd
}

func runRequest(ctx context.Context, s streams, opts requestOptions, method, rawURL string) error {
	f, err := config.Load(opts.cfgPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		f.Log = config.LogConfig{Level: "debug", Format: "console"}
	}
	logger, err := f.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := f.Client(logger)
	if err != nil {
		return err
	}
	plugins := f.Plugins(logger)
	if opts.verbose {
		plugins = append(plugins, logging.New(logging.Options{}))
	}
	cl, err := pipex.New(cfg, plugins...)
	if err != nil {
		return err
	}

	req, err := buildRequest(ctx, opts, strings.ToUpper(method), rawURL)
	if err != nil {
		return err
	}
	resp, err := cl.Do(req)
	if resp == nil {
		if e, ok := request.AsError(err); ok {
			resp = e.Response
		}
	}
	if resp != nil {
		printResponse(s, opts.include, resp)
	}
	return err
}

func buildRequest(ctx context.Context, opts requestOptions, method, rawURL string) (*request.Request, error) {
	var body interface{}
	if opts.data != "" {
		if strings.HasPrefix(opts.data, "@") {
			b, err := os.ReadFile(opts.data[1:])
			if err != nil {
				return nil, err
			}
			body = b
		} else {
			body = opts.data
		}
	}
	req, err := request.NewWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	var o request.Overrides
	if len(opts.headers) > 0 {
		o.Header = make(http.Header, len(opts.headers))
		for _, h := range opts.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q", h)
			}
			o.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}
	o.Timeout = opts.timeout
	if opts.respType != "" {
		rt, ok := request.ParseResponseType(opts.respType)
		if !ok {
			return nil, fmt.Errorf("unknown response type %q", opts.respType)
		}
		o.Meta = map[string]interface{}{request.MetaResponseType: rt}
	}
	return req.With(o), nil
}

func printResponse(s streams, include bool, resp *request.Response) {
	if include {
		fmt.Fprintf(s.out, "HTTP %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		names := make([]string, 0, len(resp.Header))
		for name := range resp.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range resp.Header[name] {
				fmt.Fprintf(s.out, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(s.out)
	}
	_, _ = s.out.Write(resp.Body)
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Fprintln(s.out)
	}
}
