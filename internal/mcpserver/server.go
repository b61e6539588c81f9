// Package mcpserver provides an MCP (Model Context Protocol) server
// that lets an LLM agent edit one flowboard session via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
	"github.com/starford/flowboard/internal/session"
)

// RulesURI is the resource holding the connection rules contract.
const RulesURI = "flowboard://connection-rules"

// Server wraps the MCP server with flowboard tools bound to one session.
type Server struct {
	mcp     *server.MCPServer
	session *session.Session
}

// New creates a new MCP server with all flowboard tools registered.
func New(s *session.Session) *Server {
	srv := &Server{session: s}

	srv.mcp = server.NewMCPServer(
		"flowboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	srv.mcp.AddTool(mcp.NewTool("list_node_kinds",
		mcp.WithDescription("List the node kinds that can be added to the workflow, with their labels and source handles."),
	), srv.listNodeKinds)

	srv.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return every node (with its configuration) and every edge of the workflow."),
	), srv.getGraph)

	srv.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node with default configuration at a canvas position."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Node kind"),
			mcp.Enum(string(models.KindAPI), string(models.KindFunction), string(models.KindQueue), string(models.KindDatabase))),
		mcp.WithNumber("x", mcp.Description("Canvas x coordinate")),
		mcp.WithNumber("y", mcp.Description("Canvas y coordinate")),
	), srv.addNode)

	srv.mcp.AddTool(mcp.NewTool("update_node_data",
		mcp.WithDescription("Replace a node's configuration. The JSON object must match the node's kind."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Configuration as a JSON object")),
	), srv.updateNodeData)

	srv.mcp.AddTool(mcp.NewTool("duplicate_node",
		mcp.WithDescription("Copy a node, offset by 20 on both axes. Edges are not copied."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node ID")),
	), srv.duplicateNode)

	srv.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node together with every edge touching it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node ID")),
	), srv.deleteNode)

	srv.mcp.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Connect two nodes. Read the connection rules first via "+
			"get_connection_rules or the "+RulesURI+" resource; refused connections return the reason."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("source_handle", mcp.Description("Source handle (API nodes: request or response)")),
		mcp.WithString("target_handle", mcp.Description("Target handle")),
	), srv.connectNodes)

	srv.mcp.AddTool(mcp.NewTool("delete_edge",
		mcp.WithDescription("Delete an edge."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Edge ID")),
	), srv.deleteEdge)

	srv.mcp.AddTool(mcp.NewTool("get_connection_rules",
		mcp.WithDescription("Returns the rules that decide which node kinds may be connected."),
	), srv.getConnectionRules)

	// Resource: connection rules contract.
	srv.mcp.AddResource(
		mcp.NewResource(RulesURI, "Connection Rules",
			mcp.WithResourceDescription("Which node kinds may connect to which, and the refusal messages."),
			mcp.WithMIMEType("text/markdown"),
		),
		srv.readRulesResource,
	)

	return srv
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

type kindInfo struct {
	Kind          models.Kind `json:"kind"`
	Label         string      `json:"label"`
	SourceHandles []string    `json:"sourceHandles,omitempty"`
}

func (s *Server) listNodeKinds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := make([]kindInfo, 0, len(models.Kinds))
	for _, k := range models.Kinds {
		out = append(out, kindInfo{Kind: k, Label: k.Label(), SourceHandles: k.SourceHandles()})
	}
	return jsonResult(out), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Store.Snapshot()), nil
}

func (s *Server) addNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := models.ParseKind(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := models.Position{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	return jsonResult(s.session.Store.AddNode(kind, pos)), nil
}

func (s *Server) updateNodeData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cur, err := s.session.Store.Node(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	data, err := models.DecodeConfig(cur.Kind, []byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.session.Store.UpdateNodeData(id, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(n), nil
}

func (s *Server) duplicateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.session.Store.DuplicateNode(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(n), nil
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.session.Editor.DeleteNode(id)
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) connectNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.session.Editor.Connect(graph.EdgeRequest{
		Source:       source,
		Target:       target,
		SourceHandle: req.GetString("source_handle", ""),
		TargetHandle: req.GetString("target_handle", ""),
	})
	var rej *graph.RejectedError
	switch {
	case errors.As(err, &rej) && rej.Silent():
		// The canvas ignores these; an agent still needs to know nothing happened.
		return mcp.NewToolResultError("connection not created: unknown node, unknown handle or duplicate edge"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e), nil
}

func (s *Server) deleteEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.session.Store.DeleteEdge(id)
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getConnectionRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ConnectionRulesContract), nil
}

func (s *Server) readRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     ConnectionRulesContract,
		},
	}, nil
}
