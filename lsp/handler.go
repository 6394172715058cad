package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/octofhir/console-lsp/logger"

	"github.com/myleshyson/lsprotocol-go/protocol"
)

// handleMessage decodes one incoming frame and routes it: responses to
// the correlator, server-sent methods to the notification handlers.
// Malformed JSON is logged and dropped; it never tears the connection
// down.
func (c *Client) handleMessage(data []byte) {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error(fmt.Sprintf("lsp[%s]: malformed message dropped: %v", c.cfg.LanguageID, err))
		return
	}

	if msg.Method == "" {
		if len(msg.ID) == 0 {
			logger.Debug(fmt.Sprintf("lsp[%s]: message with neither method nor id dropped", c.cfg.LanguageID))
			return
		}
		c.handleResponse(msg.ID, msg.Result, msg.Error)
		return
	}

	c.handleServerMethod(msg)
}

// handleServerMethod dispatches server-initiated traffic.
func (c *Client) handleServerMethod(msg incomingMessage) {
	switch msg.Method {
	case "textDocument/publishDiagnostics":
		c.handlePublishDiagnostics(msg.Params)

	case "window/logMessage":
		var params protocol.LogMessageParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			logger.Debug(fmt.Sprintf("lsp[%s]: bad logMessage params: %v", c.cfg.LanguageID, err))
			return
		}
		c.messages.Record(ServerMessage{Kind: MessageKindLog, Type: int(params.Type), Message: params.Message})
		logger.Debug(fmt.Sprintf("lsp[%s]: server log: %s", c.cfg.LanguageID, params.Message))

	case "window/showMessage":
		var params protocol.ShowMessageParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			logger.Debug(fmt.Sprintf("lsp[%s]: bad showMessage params: %v", c.cfg.LanguageID, err))
			return
		}
		c.messages.Record(ServerMessage{Kind: MessageKindShow, Type: int(params.Type), Message: params.Message})
		logger.Info(fmt.Sprintf("lsp[%s]: server message: %s", c.cfg.LanguageID, params.Message))

	default:
		if len(msg.ID) == 0 {
			// Unknown notification: log (rate-limited), never reply. An
			// error reply to a notification can break some servers.
			logUnhandledNotification(msg.Method, msg.Params)
			return
		}
		// Unknown request: reply method-not-found.
		c.replyError(msg.ID, codeMethodNotFound, "Method not found")
	}
}

func (c *Client) replyError(rawID json.RawMessage, code int64, message string) {
	var id any
	if err := json.Unmarshal(rawID, &id); err != nil {
		return
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return
	}

	env := responseEnvelope{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &responseError{Code: code, Message: message},
	}
	if err := c.writeJSON(ws, env); err != nil {
		logger.Debug(fmt.Sprintf("lsp[%s]: failed to reply with error: %v", c.cfg.LanguageID, err))
	}
}
