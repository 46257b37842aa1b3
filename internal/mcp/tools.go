package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/profiles"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(listProfilesTool(), s.handleListProfiles)
	s.registerSFTPTools()
	s.registerObjectStoreTools()
}

func listProfilesTool() mcp.Tool {
	return mcp.NewTool("list_profiles",
		mcp.WithDescription("List the configured SFTP and object store profiles. Credentials are never included."),
	)
}

type sftpProfileInfo struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Auth   string `json:"auth"`
}

type objectStoreProfileInfo struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint,omitempty"`
	Region   string `json:"region,omitempty"`
}

func (s *Server) handleListProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.profiles.Config()

	sftpProfiles := make([]sftpProfileInfo, 0, len(cfg.SFTP))
	for i := range cfg.SFTP {
		p := &cfg.SFTP[i]
		auth := "password"
		switch {
		case p.KeyPath != "":
			auth = "key"
		case p.UseAgent:
			auth = "agent"
		}
		sftpProfiles = append(sftpProfiles, sftpProfileInfo{Name: p.Name, Target: profiles.Target(p), Auth: auth})
	}

	stores := make([]objectStoreProfileInfo, 0, len(cfg.ObjectStores))
	for _, p := range cfg.ObjectStores {
		stores = append(stores, objectStoreProfileInfo{
			Name:     p.Name,
			Provider: p.Provider,
			Bucket:   p.Bucket,
			Endpoint: p.Endpoint,
			Region:   p.Region,
		})
	}

	return jsonResult(map[string]any{
		"sftp":          sftpProfiles,
		"object_stores": stores,
	})
}

// withFilterParams adds the exclusion parameters shared by transfer tools.
func withFilterParams(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("exclude_names", mcp.Description(descExcludeNames)),
		mcp.WithString("exclude_extensions", mcp.Description(descExcludeExts)),
		mcp.WithString("exclude_patterns", mcp.Description(descExcludeGlobs)),
	)
}

// filterFromRequest merges request exclusions into the configured ones.
func (s *Server) filterFromRequest(req mcp.CallToolRequest) (mirror.Filter, error) {
	f := s.profiles.Filter()
	f.Names = append(f.Names, splitList(mcp.ParseString(req, "exclude_names", ""))...)
	f.Extensions = append(f.Extensions, splitList(mcp.ParseString(req, "exclude_extensions", ""))...)
	f.Patterns = append(f.Patterns, splitList(mcp.ParseString(req, "exclude_patterns", ""))...)
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// requireArgs returns the named string arguments, or a tool error naming
// the first missing one.
func requireArgs(req mcp.CallToolRequest, names ...string) ([]string, *mcp.CallToolResult) {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = mcp.ParseString(req, name, "")
		if values[i] == "" {
			return nil, mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
		}
	}
	return values, nil
}

// errorResult reports err as a tool error carrying the coded JSON payload.
func errorResult(tool string, err error) *mcp.CallToolResult {
	slog.Warn("tool failed",
		slog.String("tool", tool),
		slog.Int("code", apperr.CodeOf(err).Value),
		slog.String("error", err.Error()),
	)
	return mcp.NewToolResultError(string(apperr.Payload(err)))
}

// jsonResult creates a JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
