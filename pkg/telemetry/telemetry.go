package telemetry

// Stub for OSS builds - telemetry is a Pro feature.
// This provides no-op implementations to satisfy imports.

type Client struct{}

var GlobalClient *Client = nil

// Track records a product event (model trained, verdict issued).
// Safe to call on a nil client.
func (c *Client) Track(event string, props map[string]interface{}) {}
