package rdpmux

import (
	"bytes"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/mcs"
)

// Run drains the transport until Close is called or the connection drops,
// dispatching every MCS SendDataIndication to the static channel router
// (spec.md §5: "one reader goroutine per connection, draining the
// transport and dispatching reassembled static-channel messages"). When
// reading or dispatching fails, every open dynamic channel is closed with
// that error before it is returned. It blocks; callers typically invoke it
// in its own goroutine right after a successful Connect.
func (c *Client) Run() error {
	err := core.Try(func() {
		resp := &mcs.ReceiveDataResponse{}
		for {
			select {
			case <-c.quit:
				return
			default:
			}

			channelId, payload := resp.Read(c.stream)
			c.router.HandleChunk(channelId, bytes.NewReader(payload))
		}
	})
	if err != nil {
		c.dvc.CloseAll(err)
	}
	return err
}

// RunAsync starts Run in a background goroutine and reports any eventual
// error on the returned channel, for callers that don't want to manage
// the reader goroutine themselves.
func (c *Client) RunAsync() <-chan error {
	errc := make(chan error, 1)
	go func() {
		err := c.Run()
		if err != nil {
			glog.Warnf("rdpmux: read loop exited: %v", err)
		}
		errc <- err
	}()
	return errc
}
