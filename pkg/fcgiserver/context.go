package fcgiserver

import (
	"net"

	"github.com/WuKongIM/wkfcgi/pkg/fcgiproto"
	"github.com/WuKongIM/wkfcgi/pkg/framer"
	"github.com/panjf2000/gnet/v2"
)

// Context is the per-connection handle passed to a Handler. It must only be
// used from inside Handler callbacks, which run on the connection's event loop.
type Context struct {
	id     int64
	conn   gnet.Conn
	framer *framer.Framer
	s      *Server
}

func (c *Context) ID() int64 {
	return c.id
}

func (c *Context) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Write sends a complete record back to the peer.
func (c *Context) Write(rec fcgiproto.Record) error {
	if err := c.framer.Push(rec); err != nil {
		return err
	}
	pending := c.framer.OutboundBuffered()
	if err := c.framer.Flush(); err != nil {
		return err
	}
	c.s.metrics.records.WithLabelValues(directionOut).Inc()
	c.s.metrics.bytes.WithLabelValues(directionOut).Add(float64(pending))
	return nil
}

// Pause holds further records of this connection until Resume.
func (c *Context) Pause() {
	c.framer.Pause()
}

func (c *Context) Resume() error {
	return c.framer.Resume()
}

// Close destroys the connection's framer, which closes the connection.
func (c *Context) Close() error {
	return c.framer.Destroy()
}

// connSource binds a gnet connection as the framer's source. gnet cannot stop
// reading a single connection, so only Destroy is offered.
type connSource struct {
	conn gnet.Conn
}

func (s *connSource) Destroy() error {
	return s.conn.Close()
}
