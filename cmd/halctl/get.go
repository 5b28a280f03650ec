package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/hyperdata/client"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/remotedata"
)

type getOptions struct {
	follow  []string
	size    int
	page    int
	timeout time.Duration
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get HREF",
		Short: "Fetch a resource and print every snapshot",
		Long: `Fetches HREF through the request tracker and object cache, resolving the
relations named by --follow, and prints each remote data snapshot as one JSON
line. Nested relations are dotted: --follow bundles.bitstreams.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringSliceVarP(&opts.follow, "follow", "f", nil, "relations to resolve, dotted for nesting")
	cmd.Flags().IntVar(&opts.size, "size", 0, "elements per page")
	cmd.Flags().IntVar(&opts.page, "page", 0, "page number, starting at 1")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func runGet(cmd *cobra.Command, root *rootOptions, opts *getOptions, href string) error {
	links, err := hal.ParsePaths(opts.follow...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stop, err := root.startTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer stop()

	c, err := client.New(ctx, root.cfg, root.log)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	var stream remotedata.Stream[remotedata.RemoteData[*hal.Document]]
	if opts.size > 0 || opts.page > 0 {
		stream = c.FetchList(href, &hal.FindListOptions{ElementsPerPage: opts.size, CurrentPage: opts.page}, links...)
	} else {
		stream = c.Fetch(href, links...)
	}

	var final remotedata.RemoteData[*hal.Document]
	for rd := range stream.Subscribe(ctx) {
		if err := writeSnapshot(cmd.OutOrStdout(), rd); err != nil {
			return err
		}
		final = rd
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fetch %s: %w", href, err)
	}
	if final.HasFailed() {
		return final.Error()
	}
	return nil
}

type snapshot struct {
	State    remotedata.State      `json:"state"`
	Stale    bool                  `json:"stale,omitempty"`
	Error    *remotedata.ErrorInfo `json:"error,omitempty"`
	Document *rendered             `json:"document,omitempty"`
}

type rendered struct {
	Self     string               `json:"self,omitempty"`
	Type     hal.ResourceType     `json:"type,omitempty"`
	Body     json.RawMessage      `json:"body,omitempty"`
	Resolved map[string]*rendered `json:"resolved,omitempty"`
	Elements []*rendered          `json:"elements,omitempty"`
}

func writeSnapshot(w io.Writer, rd remotedata.RemoteData[*hal.Document]) error {
	s := snapshot{State: rd.State(), Stale: rd.IsStale(), Error: rd.Error()}
	if doc, ok := rd.Payload(); ok && doc != nil {
		s.Document = render(doc, true)
	}
	line, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", line)
	return err
}

// render includes the body of every document except collection elements,
// which are already inside the collection body. Elements are listed only when
// they carry resolved relations.
func render(doc *hal.Document, withBody bool) *rendered {
	r := &rendered{Self: doc.Self, Type: doc.Type}
	if withBody && json.Valid(doc.Raw) {
		r.Body = json.RawMessage(doc.Raw)
	}
	for rel, d := range doc.Resolved {
		if r.Resolved == nil {
			r.Resolved = make(map[string]*rendered, len(doc.Resolved))
		}
		r.Resolved[rel] = render(d, true)
	}
	if doc.IsCollection() {
		for _, el := range doc.Elements() {
			if len(el.Resolved) > 0 {
				r.Elements = append(r.Elements, render(el, false))
			}
		}
	}
	return r
}
