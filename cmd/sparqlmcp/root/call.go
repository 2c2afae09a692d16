package root

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mcp "sparqlmcp/internal/mcp"
)

var (
	callFraming string
	callArgs    []string
	callServer  string
	callRender  bool
)

// callCmd is a small harness: it launches the server as a child process,
// initializes the session and invokes one tool, speaking whichever framing
// was requested on the command line.
var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Launch the server and invoke a single tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolName := args[0]

		framing, err := parseFraming(callFraming)
		if err != nil {
			return err
		}

		arguments, err := parseArgs(callArgs)
		if err != nil {
			return err
		}

		serverPath := callServer
		if serverPath == "" {
			if serverPath, err = os.Executable(); err != nil {
				return fmt.Errorf("resolve server binary: %w", err)
			}
		}

		child := exec.CommandContext(cmd.Context(), serverPath)
		child.Stderr = os.Stderr
		stdin, err := child.StdinPipe()
		if err != nil {
			return err
		}
		stdout, err := child.StdoutPipe()
		if err != nil {
			return err
		}
		if err := child.Start(); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		logrus.WithFields(logrus.Fields{"server": serverPath, "framing": framing}).Debug("server launched")

		t := mcp.NewClientTransport(stdout, stdin, framing)

		if _, err := roundTrip(t, "initialize", mcp.InitializeParams{ProtocolVersion: mcp.DefaultProtocolVersion}); err != nil {
			return err
		}

		resp, err := roundTrip(t, "tools/call", mcp.ToolCallParams{Name: toolName, Arguments: arguments})
		if err != nil {
			return err
		}
		if resp.Error != nil {
			return fmt.Errorf("tool call failed (%d): %s", resp.Error.Code, resp.Error.Message)
		}

		var result mcp.ToolCallResult
		raw, _ := json.Marshal(resp.Result)
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("unexpected result shape: %w", err)
		}

		for _, block := range result.Content {
			if block.Type != "text" {
				continue
			}
			if callRender {
				os.Stdout.Write(markdown.Render(block.Text, 80, 2))
				fmt.Println()
			} else {
				fmt.Println(block.Text)
			}
		}

		stdin.Close()
		return child.Wait()
	},
}

// roundTrip sends one request with a fresh uuid id and reads one response.
func roundTrip(t *mcp.Transport, method string, params any) (*mcp.Response, error) {
	id, _ := json.Marshal(uuid.NewString())
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req := mcp.Request{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams}
	if err := t.WriteMessage(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	body, err := t.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%s: read reply: %w", method, err)
	}

	var resp mcp.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode reply: %w", method, err)
	}
	return &resp, nil
}

// parseFraming maps the --framing flag value to a transport framing mode.
func parseFraming(s string) (mcp.Framing, error) {
	switch s {
	case "", "content-length":
		return mcp.FramingContentLength, nil
	case "line":
		return mcp.FramingLine, nil
	default:
		return 0, fmt.Errorf("unknown framing %q (want content-length or line)", s)
	}
}

// parseArgs turns key=value pairs into an arguments object. Values that
// parse as JSON keep their type; everything else stays a string.
func parseArgs(pairs []string) (map[string]any, error) {
	args := map[string]any{}
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q (want key=value)", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(val), &parsed); err == nil {
			args[key] = parsed
		} else {
			args[key] = val
		}
	}
	return args, nil
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVar(&callFraming, "framing", "content-length", "Message framing to use: content-length or line")
	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	callCmd.Flags().StringVar(&callServer, "server", "", "Path to the server binary (default: this binary)")
	callCmd.Flags().BoolVar(&callRender, "render", false, "Render result text as markdown in the terminal")
}
