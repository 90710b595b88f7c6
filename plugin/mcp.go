package plugin

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/blndgs/guardian/guarderr"
)

// ResourceScheme prefixes the URI of every provider resource.
const ResourceScheme = "guardian://"

// RegisterTools exposes each action as an MCP tool.
func RegisterTools(s *server.MCPServer, actions ...Action) {
	for _, a := range actions {
		opts := append([]mcp.ToolOption{mcp.WithDescription(a.Description())},
			lo.Map(a.Params(), func(p Param, _ int) mcp.ToolOption {
				props := []mcp.PropertyOption{mcp.Description(p.Description)}
				if p.Required {
					props = append(props, mcp.Required())
				}
				return mcp.WithString(p.Name, props...)
			})...)
		s.AddTool(mcp.NewTool(a.Name(), opts...), toolHandler(a))
	}
}

// toolHandler adapts an Action. Failures are reported as tool errors carrying
// the user message for the error kind, never raw error text.
func toolHandler(a Action) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := Input(req.GetArguments())
		if !a.Validate(ctx, in) {
			return mcp.NewToolResultError("invalid arguments for " + a.Name()), nil
		}
		out, err := a.Handle(ctx, in)
		if err != nil {
			return mcp.NewToolResultError(guarderr.UserMessage(err)), nil
		}
		if out.Data == nil {
			return mcp.NewToolResultText(out.Text), nil
		}
		data, err := json.Marshal(out.Data)
		if err != nil {
			return mcp.NewToolResultText(out.Text), nil
		}
		return mcp.NewToolResultText(out.Text + "\n" + string(data)), nil
	}
}

// RegisterProviders exposes each provider as a text resource at
// guardian://<name>.
func RegisterProviders(s *server.MCPServer, providers ...Provider) {
	for _, p := range providers {
		uri := ResourceScheme + p.Name()
		res := mcp.NewResource(uri, p.Name(),
			mcp.WithResourceDescription(p.Description()),
			mcp.WithMIMEType("text/plain"),
		)
		s.AddResource(res, func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			text, err := p.Get(ctx)
			if err != nil {
				return nil, guarderr.Wrap(guarderr.KindOf(err), p.Name(), err, "%s", guarderr.UserMessage(err))
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: text},
			}, nil
		})
	}
}

// NewServer returns an MCP server with the built-in actions and providers
// over w.
func NewServer(w Wallet, name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
	)
	RegisterTools(s, Actions(w)...)
	RegisterProviders(s, Providers(w)...)
	return s
}
