package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/transfer"
)

func (s *Server) registerObjectStoreTools() {
	s.mcpServer.AddTool(ossUploadTool(), s.handleOSSUpload)
	s.mcpServer.AddTool(ossDownloadTool(), s.handleOSSDownload)
	s.mcpServer.AddTool(ossDeleteTool(), s.handleOSSDelete)
	s.mcpServer.AddTool(ossExistsTool(), s.handleOSSExists)
	s.mcpServer.AddTool(ossLatestTool(), s.handleOSSLatest)
}

func ossUploadTool() mcp.Tool {
	return mcp.NewTool("oss_upload", withFilterParams(
		mcp.WithDescription(`Upload a local file or directory tree to a bucket.

Large files use multipart upload; a failed multipart upload is aborted so no
partial object is left behind.`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("local", mcp.Required(), mcp.Description(descLocalPath)),
		mcp.WithString("key", mcp.Required(), mcp.Description(descObjectKey)),
		mcp.WithBoolean("clear_first", mcp.Description(descClearFirst)),
	)...)
}

func ossDownloadTool() mcp.Tool {
	return mcp.NewTool("oss_download", withFilterParams(
		mcp.WithDescription("Download an object, or every object under a key prefix, to the local machine."),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("key", mcp.Required(), mcp.Description(descObjectKey)),
		mcp.WithString("local", mcp.Required(), mcp.Description(descLocalPath)),
		mcp.WithBoolean("clear_first", mcp.Description(descClearFirst)),
	)...)
}

func ossDeleteTool() mcp.Tool {
	return mcp.NewTool("oss_delete",
		mcp.WithDescription("Delete an object, or every object under key + '/'. The bucket root cannot be deleted."),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("key", mcp.Required(), mcp.Description(descObjectKey)),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

func ossExistsTool() mcp.Tool {
	return mcp.NewTool("oss_exists",
		mcp.WithDescription(`Report whether an object with exactly this key exists, and whether the key
is also used as a directory prefix.`),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("key", mcp.Required(), mcp.Description(descObjectKey)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func ossLatestTool() mcp.Tool {
	return mcp.NewTool("oss_latest",
		mcp.WithDescription("Return the lexically greatest name directly under a key prefix, or an empty name when nothing matches."),
		mcp.WithString("profile", mcp.Required(), mcp.Description(descProfile)),
		mcp.WithString("dir", mcp.Required(), mcp.Description(descObjectKey)),
		mcp.WithString("ext", mcp.Description(descExt)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (s *Server) handleOSSUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "local", "key")
	if errResult != nil {
		return errResult, nil
	}
	profile, local, key := args[0], args[1], args[2]
	clearFirst := mcp.ParseBoolean(req, "clear_first", false)

	filter, err := s.filterFromRequest(req)
	if err != nil {
		return errorResult("oss_upload", apperr.New(apperr.CodeInvalidArgument, "upload", "exclude_patterns", err)), nil
	}

	slog.Info("object store upload",
		slog.String("profile", profile),
		slog.String("local", local),
		slog.String("key", key),
		slog.Bool("clear_first", clearFirst),
	)

	err = s.profiles.WithObjectStore(ctx, profile, func(t *transfer.ObjectStore) error {
		return t.Push(ctx, local, key, clearFirst, filter)
	})
	if err != nil {
		return errorResult("oss_upload", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: key, Local: local})
}

func (s *Server) handleOSSDownload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "key", "local")
	if errResult != nil {
		return errResult, nil
	}
	profile, key, local := args[0], args[1], args[2]
	clearFirst := mcp.ParseBoolean(req, "clear_first", false)

	filter, err := s.filterFromRequest(req)
	if err != nil {
		return errorResult("oss_download", apperr.New(apperr.CodeInvalidArgument, "download", "exclude_patterns", err)), nil
	}

	slog.Info("object store download",
		slog.String("profile", profile),
		slog.String("key", key),
		slog.String("local", local),
		slog.Bool("clear_first", clearFirst),
	)

	err = s.profiles.WithObjectStore(ctx, profile, func(t *transfer.ObjectStore) error {
		return t.Pull(ctx, key, local, clearFirst, filter)
	})
	if err != nil {
		return errorResult("oss_download", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: key, Local: local})
}

func (s *Server) handleOSSDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "key")
	if errResult != nil {
		return errResult, nil
	}
	profile, key := args[0], args[1]

	slog.Info("object store delete", slog.String("profile", profile), slog.String("key", key))

	err := s.profiles.WithObjectStore(ctx, profile, func(t *transfer.ObjectStore) error {
		return t.Delete(ctx, key)
	})
	if err != nil {
		return errorResult("oss_delete", err), nil
	}
	return jsonResult(transferResult{Status: "ok", Profile: profile, Remote: key})
}

func (s *Server) handleOSSExists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "key")
	if errResult != nil {
		return errResult, nil
	}
	profile, key := args[0], args[1]

	var exists, isDir bool
	err := s.profiles.WithObjectStore(ctx, profile, func(t *transfer.ObjectStore) error {
		var err error
		if exists, err = t.IsExists(ctx, key); err != nil {
			return err
		}
		isDir = t.IsDir(ctx, key)
		return nil
	})
	if err != nil {
		return errorResult("oss_exists", err), nil
	}
	return jsonResult(map[string]any{"profile": profile, "key": key, "exists": exists, "is_dir": isDir})
}

func (s *Server) handleOSSLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireArgs(req, "profile", "dir")
	if errResult != nil {
		return errResult, nil
	}
	profile, dir := args[0], args[1]
	ext := mcp.ParseString(req, "ext", "")

	var name string
	err := s.profiles.WithObjectStore(ctx, profile, func(t *transfer.ObjectStore) error {
		var err error
		name, err = t.LatestByName(ctx, dir, ext)
		return err
	})
	if err != nil {
		return errorResult("oss_latest", err), nil
	}
	return jsonResult(map[string]any{"profile": profile, "dir": dir, "ext": ext, "name": name})
}
