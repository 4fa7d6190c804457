// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/photoszzt/vscode-tlaplus/services/tla/server"
)

func (a *app) kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Browse the TLA+ knowledge base",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List knowledge base articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			articles, err := svc.Articles()
			if err != nil {
				return err
			}
			if a.flags.json {
				return a.printer.JSON(server.ArticlesResponse{Articles: articles})
			}
			for _, art := range articles {
				a.printer.KeyValue(art.Name, art.Title)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print one article without its front matter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			article, content, err := svc.Article(args[0])
			if err != nil {
				return err
			}
			if a.flags.json {
				return a.printer.JSON(server.ArticleResponse{Article: article, Content: content})
			}
			a.printer.Line(strings.TrimRight(content, "\n"))
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage extracted archive modules",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all extracted modules and index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.ClearCache(cmd.Context()); err != nil {
				return err
			}
			a.printer.Success("Cache cleared")
			return nil
		},
	})
	return cmd
}
