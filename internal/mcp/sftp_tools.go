package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/sftp"
	"github.com/wanjune/yuu-transfer/internal/transfer"
)

func (s *Server) registerSFTPTools() {
	s.mcpServer.AddTool(sftpGetTool(), s.handleSFTPGet)
	s.mcpServer.AddTool(sftpPutTool(), s.handleSFTPPut)
	s.mcpServer.AddTool(sftpRemoveTool(), s.handleSFTPRemove)
	s.mcpServer.AddTool(sftpStatTool(), s.handleSFTPStat)
	s.mcpServer.AddTool(sftpLatestTool(), s.handleSFTPLatest)
}

func sftpGetTool() mcp.Tool {
	return mcp.NewTool("sftp_get", withFilterParams(
		mcp.WithDescription(`Download a remote file or directory tree to the local machine.

Directories are copied recursively. Names starting with '.' are always skipped.
A missing remote source is not an error; nothing is downloaded.`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("remote", mcp.Required(), mcp.Description(descRemotePath)),
		mcp.WithString("local", mcp.Required(), mcp.Description(descLocalPath)),
		mcp.WithBoolean("clear_first", mcp.Description(descClearFirst)),
	)...)
}

func sftpPutTool() mcp.Tool {
	return mcp.NewTool("sftp_put", withFilterParams(
		mcp.WithDescription(`Upload a local file or directory tree to the SFTP server.

Missing remote directories are created. Existing files are overwritten.`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("local", mcp.Required(), mcp.Description(descLocalPath)),
		mcp.WithString("remote", mcp.Required(), mcp.Description(descRemotePath)),
		mcp.WithBoolean("clear_first", mcp.Description(descClearFirst)),
	)...)
}

func sftpRemoveTool() mcp.Tool {
	return mcp.NewTool("sftp_remove",
		mcp.WithDescription("Delete a remote file, or a directory and everything below it. A missing path is not an error."),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("remote", mcp.Required(), mcp.Description(descRemotePath)),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

func sftpStatTool() mcp.Tool {
	return mcp.NewTool("sftp_stat",
		mcp.WithDescription(`Report whether a remote path exists and is a directory.

state is "exists", "not_found" or "unknown" (the server could not be asked).`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("remote", mcp.Required(), mcp.Description(descRemotePath)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func sftpLatestTool() mcp.Tool {
	return mcp.NewTool("sftp_latest",
		mcp.WithDescription(`Return the lexically greatest entry name in a remote directory.

Useful when file names embed a sortable date such as 20240131.csv. Returns an
empty name when nothing matches.`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("dir", mcp.Required(), mcp.Description(descRemotePath)),
		mcp.WithString("ext", mcp.Description(descExt)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type transferResult struct {
	Status  string `json:"status"`
	Profile string `json:"profile"`
	Remote  string `json:"remote"`
	Local   string `json:"local,omitempty"`
}

func (s *Server) handleSFTPGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "remote", "local")
	if errResult != nil {
		return errResult, nil
	}
	profile, remote, local := args[0], args[1], args[2]
	clearFirst := mcp.ParseBoolean(req, "clear_first", false)

	filter, err := s.filterFromRequest(req)
	if err != nil {
		return errorResult("sftp_get", apperr.New(apperr.CodeInvalidArgument, "get", "exclude_patterns", err)), nil
	}

	slog.Info("sftp get",
		slog.String("profile", profile),
		slog.String("remote", remote),
		slog.String("local", local),
		slog.Bool("clear_first", clearFirst),
	)

	err = s.profiles.WithSFTP(ctx, profile, func(t *transfer.SFTP) error {
		return t.Pull(ctx, remote, local, clearFirst, filter)
	})
	if err != nil {
		return errorResult("sftp_get", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: remote, Local: local})
}

func (s *Server) handleSFTPPut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "local", "remote")
	if errResult != nil {
		return errResult, nil
	}
	profile, local, remote := args[0], args[1], args[2]
	clearFirst := mcp.ParseBoolean(req, "clear_first", false)

	filter, err := s.filterFromRequest(req)
	if err != nil {
		return errorResult("sftp_put", apperr.New(apperr.CodeInvalidArgument, "put", "exclude_patterns", err)), nil
	}

	slog.Info("sftp put",
		slog.String("profile", profile),
		slog.String("local", local),
		slog.String("remote", remote),
		slog.Bool("clear_first", clearFirst),
	)

	err = s.profiles.WithSFTP(ctx, profile, func(t *transfer.SFTP) error {
		return t.Push(ctx, local, remote, clearFirst, filter)
	})
	if err != nil {
		return errorResult("sftp_put", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: remote, Local: local})
}

func (s *Server) handleSFTPRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "remote")
	if errResult != nil {
		return errResult, nil
	}
	profile, remote := args[0], args[1]

	slog.Info("sftp remove", slog.String("profile", profile), slog.String("remote", remote))

	err := s.profiles.WithSFTP(ctx, profile, func(t *transfer.SFTP) error {
		return t.Rm(ctx, remote)
	})
	if err != nil {
		return errorResult("sftp_remove", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: remote})
}

func (s *Server) handleSFTPStat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "remote")
	if errResult != nil {
		return errResult, nil
	}
	profile, remote := args[0], args[1]

	result := map[string]any{"profile": profile, "remote": remote}
	err := s.profiles.WithSFTP(ctx, profile, func(t *transfer.SFTP) error {
		probe := t.Probe(remote)
		result["state"] = probe.State.String()
		result["exists"] = probe.State == sftp.Exists
		result["is_dir"] = probe.IsDir
		if probe.Err != nil {
			result["error"] = probe.Err.Error()
		}
		return nil
	})
	if err != nil {
		return errorResult("sftp_stat", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleSFTPLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "dir")
	if errResult != nil {
		return errResult, nil
	}
	profile, dir := args[0], args[1]
	ext := mcp.ParseString(req, "ext", "")

	var name string
	err := s.profiles.WithSFTP(ctx, profile, func(t *transfer.SFTP) error {
		var err error
		name, err = t.LatestByName(ctx, dir, ext)
		return err
	})
	if err != nil {
		return errorResult("sftp_latest", err), nil
	}
	return jsonResult(map[string]any{"profile": profile, "dir": dir, "ext": ext, "name": name})
}
