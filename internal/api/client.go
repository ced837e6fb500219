package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jwebster45206/story-client/pkg/changeset"
)

// ErrorResponse is the API's error body shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServerError is an error the server delivered inside an otherwise
// successful action response.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server rejected action: " + e.Message
}

// FollowUpActionType enumerates the server's post-action instructions.
type FollowUpActionType string

const (
	FollowUpNone                 FollowUpActionType = "NONE"
	FollowUpStartNarrativeStream FollowUpActionType = "START_NARRATIVE_STREAM"
)

// StartNarrativeStreamPayload names the event whose stream should be
// opened and the characters taking part in it.
type StartNarrativeStreamPayload struct {
	EventID              string   `json:"event_id"`
	InvolvedCharacterIDs []string `json:"involved_character_ids,omitempty"`
}

// FollowUpAction is the server's optional instruction bundled with an
// action response. It is the only bridge from the synchronization engine
// to the narrative stream.
type FollowUpAction struct {
	Type    FollowUpActionType           `json:"type"`
	Payload *StartNarrativeStreamPayload `json:"payload,omitempty"`
}

// ActionResponse is the result of a player action: the changeset to apply
// plus an optional follow-up instruction. Error is set on failures the
// server chose to deliver with a 200.
type ActionResponse struct {
	Changeset      *changeset.ChangeSet `json:"changeset"`
	FollowUpAction *FollowUpAction      `json:"follow_up_action,omitempty"`
	Error          string               `json:"error,omitempty"`
}

const (
	actionMovePlayer       = "MOVE_PLAYER"
	actionTriggerCondition = "TRIGGER_ACTIVATION_CONDITION"
)

type actionPayload struct {
	NewScenarioID         string `json:"new_scenario_id,omitempty"`
	ActivationConditionID string `json:"activation_condition_id,omitempty"`
}

type actionRequest struct {
	FromCheckpointID string        `json:"from_checkpoint_id,omitempty"`
	ActionType       string        `json:"action_type"`
	Payload          actionPayload `json:"payload"`
}

// Client talks to the game server: state fetches, player actions, choice
// submission, the narrative stream, and image assets.
type Client struct {
	httpClient *http.Client
	baseURL    string
	assetsURL  string
	logger     *slog.Logger
}

// NewClient creates an API client. baseURL is the game API root,
// assetsURL the asset root. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL, assetsURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		assetsURL:  assetsURL,
		logger:     logger,
	}
}

// FullState fetches the complete world as a changeset of add operations.
// Used for bootstrap and resume.
func (c *Client) FullState(ctx context.Context) (*changeset.ChangeSet, error) {
	var cs changeset.ChangeSet
	if err := c.getJSON(ctx, c.baseURL+"/state/full", &cs); err != nil {
		return nil, fmt.Errorf("failed to get full state: %w", err)
	}
	return &cs, nil
}

// Changes fetches the changeset covering everything after fromCheckpoint.
func (c *Client) Changes(ctx context.Context, fromCheckpoint string) (*changeset.ChangeSet, error) {
	u := fmt.Sprintf("%s/state/changes?from_checkpoint=%s", c.baseURL, url.QueryEscape(fromCheckpoint))
	var cs changeset.ChangeSet
	if err := c.getJSON(ctx, u, &cs); err != nil {
		return nil, fmt.Errorf("failed to get incremental changes: %w", err)
	}
	return &cs, nil
}

// MovePlayer requests a move to scenarioID.
func (c *Client) MovePlayer(ctx context.Context, scenarioID, fromCheckpoint string) (*ActionResponse, error) {
	return c.sendAction(ctx, actionRequest{
		FromCheckpointID: fromCheckpoint,
		ActionType:       actionMovePlayer,
		Payload:          actionPayload{NewScenarioID: scenarioID},
	})
}

// TriggerCondition requests activation of a contextual option's condition.
func (c *Client) TriggerCondition(ctx context.Context, conditionID, fromCheckpoint string) (*ActionResponse, error) {
	return c.sendAction(ctx, actionRequest{
		FromCheckpointID: fromCheckpoint,
		ActionType:       actionTriggerCondition,
		Payload:          actionPayload{ActivationConditionID: conditionID},
	})
}

func (c *Client) sendAction(ctx context.Context, reqData actionRequest) (*ActionResponse, error) {
	body, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/action", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send action: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, respBody)
	}

	var actionResp ActionResponse
	if err := json.Unmarshal(respBody, &actionResp); err != nil {
		return nil, fmt.Errorf("failed to parse action response: %w", err)
	}
	return &actionResp, nil
}

// SubmitChoice posts the player's chosen label for the given event.
func (c *Client) SubmitChoice(ctx context.Context, eventID, choiceLabel string) error {
	payload := map[string]string{"choice_label": choiceLabel}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal choice: %w", err)
	}

	u := fmt.Sprintf("%s/event/%s/choice", c.baseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit choice: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return decodeError(resp.StatusCode, respBody)
	}
	return nil
}

// Image fetches an image asset by its server-relative path.
func (c *Client) Image(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/image?path=%s", c.assetsURL, url.QueryEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, respBody)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("API returned status %d: %s", status, errorResp.Error)
}
