package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/EmberRavager/youagent/internal/logging"
	"github.com/EmberRavager/youagent/internal/tools"
)

// Bridge owns the client connections for every configured server and
// mounts their tools into a registry. The registry holds only forwarding
// handlers; the bridge keeps the process handles.
type Bridge struct {
	workspace  string
	configPath string
	logger     *logging.Logger

	clients []*Client
	mounted []string
}

// NewBridge creates a bridge for the workspace. An empty config path means
// no external servers.
func NewBridge(workspace, configPath string) *Bridge {
	return &Bridge{
		workspace:  workspace,
		configPath: configPath,
		logger:     logging.Default("mcp"),
	}
}

// MountedTools returns the registry names of all mounted remote tools.
func (b *Bridge) MountedTools() []string {
	return b.mounted
}

// Servers returns the number of live server connections.
func (b *Bridge) Servers() int {
	return len(b.clients)
}

// Mount starts every enabled server and registers its tools. Server
// startup is retried per the server's retry configuration before giving
// up.
func (b *Bridge) Mount(ctx context.Context, registry *tools.Registry) error {
	if b.configPath == "" {
		return nil
	}

	servers, err := LoadServers(b.configPath, b.workspace)
	if err != nil {
		return err
	}

	for _, server := range servers {
		if server.Disabled {
			continue
		}

		client := NewClient(server, b.workspace)
		if err := b.startWithRetry(ctx, client, server); err != nil {
			return fmt.Errorf("start server %s: %w", server.Name, err)
		}
		b.clients = append(b.clients, client)

		descriptors, err := client.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("list tools on %s: %w", server.Name, err)
		}

		for _, descriptor := range descriptors {
			name := MountedName(server.Name, descriptor.Name)
			remoteTool := descriptor.Name
			boundClient := client

			spec := tools.Spec{
				Name:        name,
				Description: descriptor.Description,
				Parameters:  normalizeSchema(descriptor.InputSchema),
				Handler: func(ctx context.Context, args map[string]any) tools.Result {
					result, err := boundClient.CallTool(ctx, remoteTool, args)
					if err != nil {
						return tools.Fail("%v", err)
					}
					return result
				},
			}
			if err := registry.Register(spec); err != nil {
				return fmt.Errorf("mount %s: %w", name, err)
			}
			b.mounted = append(b.mounted, name)
		}

		b.logger.Info("server mounted", "server", server.Name, "tools", len(descriptors))
	}
	return nil
}

func (b *Bridge) startWithRetry(ctx context.Context, client *Client, server ServerConfig) error {
	if server.RetryMax < 1 {
		return client.Start(ctx)
	}

	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			return struct{}{}, client.Start(ctx)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(time.Duration(server.RetryDelay)*time.Second)),
		backoff.WithMaxTries(uint(server.RetryMax+1)),
	)
	return err
}

// Close stops every live connection.
func (b *Bridge) Close() {
	for _, client := range b.clients {
		client.Stop()
	}
	b.clients = nil
}

// MountedName derives the deterministic registry name for a remote tool:
// lower-cased, non-alphanumerics replaced, joined as mcp_<server>_<tool>.
func MountedName(server, tool string) string {
	return "mcp_" + sanitize(server) + "_" + sanitize(tool)
}

func sanitize(name string) string {
	var sb strings.Builder
	for _, ch := range strings.ToLower(name) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			sb.WriteRune(ch)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// normalizeSchema guarantees the model always receives a syntactically
// valid parameter schema, regardless of what the server advertised.
func normalizeSchema(schema map[string]any) map[string]any {
	if len(schema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if _, hasType := schema["type"]; !hasType {
		merged := map[string]any{"type": "object", "properties": map[string]any{}}
		for k, v := range schema {
			merged[k] = v
		}
		return merged
	}
	return schema
}
