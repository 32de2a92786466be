package node

import "github.com/foldlink/foldlink/internal/correlate"

// Tracker exposes the client's pending-call tracker to external tests.
func (c *Client) Tracker() *correlate.Tracker { return c.tracker }
