// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the conversion pipeline as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/internal/validate"
	"github.com/pdiddy/doc2md/pkg/types"
)

const serverName = "doc2md"

// New returns an MCP server with the doc2md tools registered against p.
func New(p *convert.Pipeline, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	Register(srv, p)
	return srv
}

// Register adds doc2md_convert, doc2md_outline and doc2md_formats to srv.
func Register(srv *mcp.Server, p *convert.Pipeline) {
	h := &handlers{pipeline: p}
	srv.AddTool(&mcp.Tool{
		Name:        "doc2md_convert",
		Description: "Convert a Word (.docx), Excel (.xlsx) or PDF file to Markdown and return the Markdown text.",
		InputSchema: inputSchema(map[string]any{
			"path":             map[string]any{"type": "string", "description": "Path of the file to convert"},
			"write":            map[string]any{"type": "boolean", "description": "Also write {output_dir}/{stem}.md and its images"},
			"heading_offset":   map[string]any{"type": "integer", "description": "Added to every heading level, clamped to 1..6"},
			"include_metadata": map[string]any{"type": "boolean", "description": "Emit the YAML frontmatter block"},
			"embed_images":     map[string]any{"type": "boolean", "description": "Embed images as base64 data URLs"},
		}, []string{"path"}),
	}, h.convert)
	srv.AddTool(&mcp.Tool{
		Name:        "doc2md_outline",
		Description: "Convert a document and list its Markdown headings with level and line number.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the file to outline"},
		}, []string{"path"}),
	}, h.outline)
	srv.AddTool(&mcp.Tool{
		Name:        "doc2md_formats",
		Description: "List the supported file extensions.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, h.formats)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type convertReq struct {
	Path            string `json:"path"`
	Write           bool   `json:"write"`
	HeadingOffset   *int   `json:"heading_offset"`
	IncludeMetadata *bool  `json:"include_metadata"`
	EmbedImages     *bool  `json:"embed_images"`
}

type handlers struct {
	pipeline *convert.Pipeline
}

func decode(req *mcp.CallToolRequest, v any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, v)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(err error) *mcp.CallToolResult {
	res := textResult(err.Error())
	res.IsError = true
	return res
}

// run converts path with a per-call copy of the pipeline configuration.
func (h *handlers) run(ctx context.Context, r convertReq) (*convert.Result, error) {
	if r.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	p := *h.pipeline
	p.Ledger = nil
	p.Config.PreviewMode = false
	p.Config.DryRun = !r.Write
	if r.HeadingOffset != nil {
		p.Config.Output.HeadingOffset = *r.HeadingOffset
	}
	if r.IncludeMetadata != nil {
		p.Config.Output.IncludeMetadata = *r.IncludeMetadata
	}
	if r.EmbedImages != nil {
		p.Config.Images.EmbedBase64 = *r.EmbedImages
	}
	return p.ConvertFile(ctx, r.Path)
}

func (h *handlers) convert(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var r convertReq
	if err := decode(req, &r); err != nil {
		return errorResult(fmt.Errorf("decoding arguments: %w", err)), nil
	}
	res, err := h.run(ctx, r)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(res.Markdown), nil
}

type outlineEntry struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

func (h *handlers) outline(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var r convertReq
	if err := decode(req, &r); err != nil {
		return errorResult(fmt.Errorf("decoding arguments: %w", err)), nil
	}
	res, err := h.run(ctx, convertReq{Path: r.Path})
	if err != nil {
		return errorResult(err), nil
	}
	headings := []outlineEntry{}
	for _, hd := range validate.Outline(res.Markdown) {
		headings = append(headings, outlineEntry{Level: hd.Level, Text: hd.Text, Line: hd.Line})
	}
	data, err := json.Marshal(map[string]any{"headings": headings})
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

type formatEntry struct {
	Extension string       `json:"extension"`
	Format    types.Format `json:"format"`
}

func (h *handlers) formats(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var list []formatEntry
	for ext, f := range convert.SupportedFormats() {
		list = append(list, formatEntry{Extension: ext, Format: f})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Extension < list[j].Extension })
	data, err := json.Marshal(map[string]any{"formats": list})
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}
