package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/carelinq/datachat/auth"
	"github.com/carelinq/datachat/chat"
	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
	"github.com/carelinq/datachat/remotecfg"
	"github.com/carelinq/datachat/storage"
	"github.com/carelinq/datachat/taskq"
	"github.com/carelinq/datachat/tools"
)

// Remote config coordinates for the data tool.
const (
	promptsGroup           = "Prompts"
	systemInstructionKey   = "sqlAgentSystemInstruction"
	functionDescriptionKey = "sqlAgentFunctionDescription"
	functionParametersKey  = "sqlAgentFunctionParameters"
)

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	engine   *chat.Engine
	titles   *chat.TitleGenerator
	verifier auth.Verifier
	queue    taskq.Queue
	images   *storage.ImageStore
	config   *remotecfg.Cache
	prompts  *remotecfg.PromptStore
	logger   log.Logger
}

// NewChatHandler creates a chat handler wired to its collaborators.
func NewChatHandler(
	engine *chat.Engine,
	titles *chat.TitleGenerator,
	verifier auth.Verifier,
	queue taskq.Queue,
	images *storage.ImageStore,
	config *remotecfg.Cache,
	prompts *remotecfg.PromptStore,
	logger log.Logger,
) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		titles:   titles,
		verifier: verifier,
		queue:    queue,
		images:   images,
		config:   config,
		prompts:  prompts,
		logger:   logger,
	}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /chat/task", h.handleTask)
	mux.HandleFunc("POST /chat/title", h.handleTitle)
}

// taskPayload is the body posted to /chat/task by the task queue.
// Audio rides along base64-encoded; images are referenced by the
// object-store URI they were uploaded to during intake.
type taskPayload struct {
	Text              string `json:"text"`
	UserID            string `json:"user_id"`
	ChatHistoryID     string `json:"chat_history_id"`
	SystemInstruction string `json:"system_instruction,omitempty"`
	ImageURI          string `json:"image_uri,omitempty"`
	ImageMIMEType     string `json:"image_mime_type,omitempty"`
	AudioBytes        []byte `json:"audio_bytes,omitempty"`
	AudioMIMEType     string `json:"audio_mime_type,omitempty"`
}

// handleChat authenticates, parses the multipart/JSON body, uploads
// any image, and enqueues generation. Responds 202 immediately.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	data, err := parseRequestData(r)
	if err != nil {
		writeError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	if data.Text == "" {
		writeError(h.logger, w, http.StatusBadRequest, "text is required")
		return
	}

	chatID := data.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	audioBytes, audioMIME := h.processAudio(r, data)

	imageURI, imageMIME, err := h.processImage(r, identity.UserID, chatID)
	if err != nil {
		writeError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	payload := taskPayload{
		Text:              chat.CleanText(data.Text),
		UserID:            identity.UserID,
		ChatHistoryID:     chatID,
		SystemInstruction: data.SystemInstruction,
		ImageURI:          imageURI,
		ImageMIMEType:     imageMIME,
		AudioBytes:        audioBytes,
		AudioMIMEType:     audioMIME,
	}
	if err := h.queue.Enqueue(r.Context(), "/chat/task", payload); err != nil {
		h.logger.Error("failed to enqueue chat task", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "failed to schedule generation")
		return
	}

	writeJSON(h.logger, w, http.StatusAccepted, map[string]string{"status": "processing"})
}

// handleTask is the internal task callback: it assembles the message
// parts and tool declarations and drives the conversation engine.
func (h *ChatHandler) handleTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(h.logger, w, http.StatusBadRequest, "invalid task payload")
		return
	}
	if payload.Text == "" || payload.UserID == "" {
		writeError(h.logger, w, http.StatusBadRequest, "text and user_id are required")
		return
	}

	// Part order: audio, then text, then image.
	var parts []llm.Part
	if len(payload.AudioBytes) > 0 {
		parts = append(parts, llm.BlobPart(payload.AudioMIMEType, payload.AudioBytes))
	}
	parts = append(parts, llm.TextPart(payload.Text))
	if payload.ImageURI != "" {
		parts = append(parts, llm.FilePart(payload.ImageURI, payload.ImageMIMEType))
	}

	system, toolDef, err := h.loadToolContext(r)
	if err != nil {
		if errors.Is(err, remotecfg.ErrNotFound) {
			writeError(h.logger, w, http.StatusNotFound, "Configuration not found")
			return
		}
		h.logger.Error("failed to load tool configuration", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "configuration unavailable")
		return
	}
	if payload.SystemInstruction != "" {
		system = payload.SystemInstruction
	}

	result := h.engine.Generate(r.Context(), chat.Request{
		UserID:         payload.UserID,
		ConversationID: payload.ChatHistoryID,
		Message:        parts,
		System:         system,
		Tools:          []llm.ToolDefinition{toolDef},
	})

	writeJSON(h.logger, w, http.StatusOK, map[string]string{
		"output_text":     result.Answer,
		"chat_history_id": result.ConversationID,
	})
}

// handleTitle generates a conversation title synchronously.
func (h *ChatHandler) handleTitle(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	data, err := parseRequestData(r)
	if err != nil {
		writeError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	if data.Text == "" {
		writeError(h.logger, w, http.StatusBadRequest, "text is required")
		return
	}

	title, err := h.titles.Generate(r.Context(), data.Text)
	if err != nil {
		if errors.Is(err, remotecfg.ErrNotFound) {
			writeError(h.logger, w, http.StatusNotFound, "Configuration not found")
			return
		}
		h.logger.Error("title generation failed", "error", err)
		writeError(h.logger, w, http.StatusInternalServerError, "title generation failed")
		return
	}

	writeJSON(h.logger, w, http.StatusOK, map[string]string{"title": title})
}

// authenticate verifies the bearer token, writing a 401 on failure.
func (h *ChatHandler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token, err := auth.BearerToken(r)
	if err != nil {
		writeError(h.logger, w, http.StatusUnauthorized, err.Error())
		return auth.Identity{}, false
	}
	identity, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		writeError(h.logger, w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		return auth.Identity{}, false
	}
	return identity, true
}

// loadToolContext fetches the system instruction and the data tool
// declaration from remote configuration. The system instruction is
// required; a missing tool declaration falls back to the built-in one.
func (h *ChatHandler) loadToolContext(r *http.Request) (string, llm.ToolDefinition, error) {
	ctx := r.Context()

	system, err := h.promptFor(ctx, systemInstructionKey)
	if err != nil {
		return "", llm.ToolDefinition{}, err
	}
	description, err := h.promptFor(ctx, functionDescriptionKey)
	if err != nil {
		if errors.Is(err, remotecfg.ErrNotFound) {
			h.logger.Warn("tool declaration not configured, using built-in default")
			return system, tools.DefaultDataToolDefinition(), nil
		}
		return "", llm.ToolDefinition{}, err
	}
	parameters, err := h.promptFor(ctx, functionParametersKey)
	if err != nil {
		if errors.Is(err, remotecfg.ErrNotFound) {
			h.logger.Warn("tool parameters not configured, using built-in default")
			return system, tools.DefaultDataToolDefinition(), nil
		}
		return "", llm.ToolDefinition{}, err
	}

	toolDef, err := tools.DataToolDefinition(description, parameters)
	if err != nil {
		return "", llm.ToolDefinition{}, err
	}
	return system, toolDef, nil
}

// promptFor resolves a config key to its fileName and loads the prompt.
func (h *ChatHandler) promptFor(ctx context.Context, key string) (string, error) {
	value, err := h.config.Lookup(ctx, promptsGroup, key)
	if err != nil {
		return "", err
	}
	fileName, ok := value.Field("fileName")
	if !ok {
		return "", remotecfg.ErrNotFound
	}
	return h.prompts.Prompt(ctx, fileName)
}

// requestData is the client-facing request body, accepted either as
// JSON or as a multipart form with a "json" part.
type requestData struct {
	Text              string `json:"text"`
	ChatID            string `json:"chat_id"`
	ChatIDAlt         string `json:"chatId"`
	SystemInstruction string `json:"system_instruction"`
	SystemAlt         string `json:"systemInstruction"`
	Audio             string `json:"audio"`
}

func (d *requestData) normalize() {
	if d.ChatID == "" {
		d.ChatID = d.ChatIDAlt
	}
	if d.SystemInstruction == "" {
		d.SystemInstruction = d.SystemAlt
	}
}

// parseRequestData decodes the request body. Multipart requests carry
// the JSON either as a "json" file part or a "json" form value; plain
// requests carry it as the body itself.
func parseRequestData(r *http.Request) (*requestData, error) {
	contentType := r.Header.Get("Content-Type")
	data := &requestData{}

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		raw, err := multipartJSON(r)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, data); err != nil {
				return nil, errors.New("invalid json payload")
			}
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(data); err != nil {
			return nil, errors.New("invalid json payload")
		}
	}

	data.normalize()
	return data, nil
}

// maxUploadBytes caps in-memory multipart parsing at 32 MiB.
const maxUploadBytes = 32 << 20

// multipartJSON returns the raw JSON carried in a multipart request,
// checking the "json" file part first and the form value second.
func multipartJSON(r *http.Request) ([]byte, error) {
	if file, _, err := r.FormFile("json"); err == nil {
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("failed to read json part")
		}
		return raw, nil
	}
	if value := r.FormValue("json"); value != "" {
		return []byte(value), nil
	}
	return nil, nil
}

// processAudio extracts audio from a multipart "audio" file part or,
// failing that, from the base64 "audio" field of the JSON body. The
// MIME type is sniffed from the content. Unreadable audio is dropped
// from the conversation, with the failure logged.
func (h *ChatHandler) processAudio(r *http.Request, data *requestData) ([]byte, string) {
	if file, _, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			h.logger.Warn("failed to read audio part, dropping audio", "error", err)
			return nil, ""
		}
		if len(raw) > 0 {
			return raw, http.DetectContentType(raw)
		}
		return nil, ""
	}
	if data.Audio != "" {
		raw, err := base64.StdEncoding.DecodeString(data.Audio)
		if err != nil {
			h.logger.Warn("failed to decode base64 audio, dropping audio", "error", err)
			return nil, ""
		}
		if len(raw) > 0 {
			return raw, http.DetectContentType(raw)
		}
	}
	return nil, ""
}

// processImage uploads a multipart "image" file part to the image
// store and returns its URI. Non-image uploads are rejected.
func (h *ChatHandler) processImage(r *http.Request, userID, chatID string) (string, string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", "", nil
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", "", errors.New("failed to read image")
	}

	mimeType := imageMIMEType(raw, header)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", "", errors.New("InvalidInputType: uploaded file is not an image")
	}

	uri, err := h.images.Save(r.Context(), userID, chatID, raw, mimeType)
	if err != nil {
		return "", "", errors.New("failed to store image")
	}
	return uri, mimeType, nil
}

// imageMIMEType prefers the sniffed content type over the declared one.
func imageMIMEType(raw []byte, header *multipart.FileHeader) string {
	sniffed := http.DetectContentType(raw)
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	return header.Header.Get("Content-Type")
}
