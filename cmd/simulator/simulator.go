package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FlowConfig holds the flow driver configuration
type FlowConfig struct {
	ServerURL string
	Email     string
	Password  string
}

// FlowDriver drives the analysis purchase flow against a running gateway.
// It registers an account (or logs in), then walks a session through
// preview, depth selection, and purchase the way the web client would.
type FlowDriver struct {
	config      *FlowConfig
	client      *http.Client
	log         *zap.Logger
	accessToken string
	sessionID   string
	lastSession map[string]interface{}
}

// NewFlowDriver creates a new flow driver
func NewFlowDriver(config *FlowConfig, log *zap.Logger) *FlowDriver {
	return &FlowDriver{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Authenticate logs in, registering the account first if it does not exist
func (d *FlowDriver) Authenticate() error {
	if err := d.login(); err == nil {
		return nil
	}

	d.log.Info("Login failed, registering account", zap.String("email", d.config.Email))

	body := map[string]string{
		"name":     "Flow Driver",
		"email":    d.config.Email,
		"password": d.config.Password,
	}
	resp, err := d.post("/api/v1/auth/register", body)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if tokens, ok := resp["tokens"].(map[string]interface{}); ok {
		if token, ok := tokens["accessToken"].(string); ok {
			d.accessToken = token
			return nil
		}
	}

	return d.login()
}

func (d *FlowDriver) login() error {
	resp, err := d.post("/api/v1/auth/login", map[string]string{
		"email":    d.config.Email,
		"password": d.config.Password,
	})
	if err != nil {
		return err
	}

	tokens, ok := resp["tokens"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("no tokens in login response")
	}
	token, ok := tokens["accessToken"].(string)
	if !ok {
		return fmt.Errorf("no access token in login response")
	}

	d.accessToken = token
	d.log.Info("Authenticated", zap.String("email", d.config.Email))
	return nil
}

// RunFlow drives a complete flow for one address and depth level
func (d *FlowDriver) RunFlow(address string, depth int) error {
	if err := d.CreateSession(); err != nil {
		return err
	}
	if err := d.SubmitAddress(address); err != nil {
		return err
	}
	if err := d.SelectDepth(depth); err != nil {
		return err
	}
	if err := d.ConfirmPurchase(); err != nil {
		return err
	}

	d.PrintSession()
	return nil
}

// CreateSession starts a fresh analysis session
func (d *FlowDriver) CreateSession() error {
	resp, err := d.post("/api/v1/sessions", nil)
	if err != nil {
		return err
	}

	id, ok := resp["id"].(string)
	if !ok {
		return fmt.Errorf("no session id in response")
	}

	d.sessionID = id
	d.lastSession = resp
	fmt.Printf("Session created: %s\n", id)
	return nil
}

// SubmitAddress submits an address and waits for the preview
func (d *FlowDriver) SubmitAddress(address string) error {
	if d.sessionID == "" {
		if err := d.CreateSession(); err != nil {
			return err
		}
	}

	resp, err := d.post("/api/v1/sessions/"+d.sessionID+"/address", map[string]string{
		"address": address,
	})
	if err != nil {
		return err
	}

	d.lastSession = resp
	if preview, ok := resp["preview_report"].(map[string]interface{}); ok {
		fmt.Printf("Preview: grade %v, market score %v\n", preview["grade"], preview["market_score"])
	}
	return nil
}

// SelectDepth picks a depth tier
func (d *FlowDriver) SelectDepth(level int) error {
	resp, err := d.post("/api/v1/sessions/"+d.sessionID+"/depth", map[string]int{
		"depth_level": level,
	})
	if err != nil {
		return err
	}

	d.lastSession = resp
	fmt.Printf("Depth selected: %d\n", level)
	return nil
}

// ConfirmPurchase buys the selected tier and waits for the full report
func (d *FlowDriver) ConfirmPurchase() error {
	resp, err := d.post("/api/v1/sessions/"+d.sessionID+"/purchase", nil)
	if err != nil {
		return err
	}

	d.lastSession = resp
	if billing, ok := resp["billing"].(map[string]interface{}); ok {
		fmt.Printf("Purchased: %v cents (%v)\n", billing["amount_charged"], billing["billing_kind"])
	}
	if report, ok := resp["full_report"].(map[string]interface{}); ok {
		fmt.Printf("Report: grade %v, market score %v\n", report["grade"], report["market_score"])
	}
	return nil
}

// Reset returns the session to a blank input state
func (d *FlowDriver) Reset() error {
	resp, err := d.post("/api/v1/sessions/"+d.sessionID+"/reset", nil)
	if err != nil {
		return err
	}

	d.lastSession = resp
	fmt.Println("Session reset")
	return nil
}

// PrintSession pretty-prints the last session snapshot
func (d *FlowDriver) PrintSession() {
	if d.lastSession == nil {
		fmt.Println("No session yet")
		return
	}

	data, err := json.MarshalIndent(d.lastSession, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", d.lastSession)
		return
	}
	fmt.Println(string(data))
}

func (d *FlowDriver) post(path string, body interface{}) (map[string]interface{}, error) {
	var payload []byte
	var err error
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, d.config.ServerURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.accessToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if msg, ok := decoded["error"].(string); ok {
			return nil, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return decoded, nil
}
