package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// StdioTransport speaks newline-delimited JSON-RPC over a byte stream, the
// framing desktop MCP clients use when they spawn the server as a child
// process.
type StdioTransport struct {
	handler *Handler
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
	logger  *slog.Logger
}

// NewStdioTransport wires the handler to a reader/writer pair (normally
// stdin/stdout; tests pass pipes).
func NewStdioTransport(handler *Handler, r io.Reader, w io.Writer, logger *slog.Logger) *StdioTransport {
	return &StdioTransport{
		handler: handler,
		reader:  bufio.NewReader(r),
		writer:  w,
		logger:  logger,
	}
}

func (t *StdioTransport) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// Run reads messages until EOF or context cancellation. Each message is
// handled in its own goroutine so a blocking compute call does not stall the
// read loop; response writes are serialized.
func (t *StdioTransport) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var msg JSONRPCMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			t.write(&JSONRPCMessage{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: "parse error"},
			})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp := t.handler.Handle(ctx, &msg); resp != nil {
				t.write(resp)
			}
		}()
	}
}

func (t *StdioTransport) write(msg *JSONRPCMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		t.log().Error("stdio marshal failed", "error", err)
		return
	}
	data = append(data, '\n')
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		t.log().Error("stdio write failed", "error", err)
	}
}
