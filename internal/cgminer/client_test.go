package cgminer

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMiner 模拟 cgminer API：每个连接读取一条命令，按 responses 回复后关闭
type fakeMiner struct {
	ln        net.Listener
	responses map[string]string
	commands  chan string
}

func newFakeMiner(t *testing.T, responses map[string]string) *fakeMiner {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeMiner{ln: ln, responses: responses, commands: make(chan string, 16)}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeMiner) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			buf := make([]byte, 256)
			n, _ := c.Read(buf)
			cmd := string(buf[:n])
			select {
			case f.commands <- cmd:
			default:
			}
			for name, resp := range f.responses {
				if cmd == `{"command":"`+name+`"}` {
					_, _ = c.Write([]byte(resp))
					return
				}
			}
		}(conn)
	}
}

func (f *fakeMiner) client() *Client {
	host, port, _ := net.SplitHostPort(f.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return NewClient(host, p, time.Second)
}

func TestCallSendsCommandAndParsesNulTerminatedFrame(t *testing.T) {
	f := newFakeMiner(t, map[string]string{
		"devs": `{"STATUS":[{"STATUS":"S"}],"DEVS":[{"GPU":0,"Temperature":71.0,"Total MH":28107.5}]}` + "\x00",
	})

	devs, err := f.client().Devs(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, 71.0, devs[0]["Temperature"])
	assert.Equal(t, 28107.5, devs[0]["Total MH"])
	assert.Equal(t, `{"command":"devs"}`, <-f.commands)
}

func TestCallParsesNewlineTerminatedFrame(t *testing.T) {
	f := newFakeMiner(t, map[string]string{
		"pools": `{"POOLS":[{"URL":"stratum+tcp://stratum.simpledoge.com:3333","Stratum URL":"stratum.simpledoge.com","User":"alice.rig1"}]}` + "\n",
	})

	pools, err := f.client().Pools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "alice.rig1", pools[0].User)
	assert.Equal(t, "stratum.simpledoge.com", pools[0].Host())
}

func TestMissingSectionIsShapeError(t *testing.T) {
	f := newFakeMiner(t, map[string]string{
		"devs": `{"STATUS":[{"STATUS":"E","Msg":"no devices"}]}`,
	})

	_, err := f.client().Devs(context.Background())
	require.Error(t, err)
	assert.True(t, IsShapeError(err))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestGarbageIsShapeError(t *testing.T) {
	f := newFakeMiner(t, map[string]string{"devs": `not json at all`})

	_, err := f.client().Devs(context.Background())
	require.Error(t, err)
	assert.True(t, IsShapeError(err))
}

func TestUnreachableIsTransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	_, err = NewClient("127.0.0.1", addr.Port, 500*time.Millisecond).Devs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, IsShapeError(err))
}

func TestEmptyResponseIsTransportError(t *testing.T) {
	f := newFakeMiner(t, map[string]string{})

	_, err := f.client().Call(context.Background(), "summary")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestPoolMatches(t *testing.T) {
	p := Pool{URL: "stratum+tcp://Stratum.SimpleDoge.com:3333", User: "alice.1"}
	assert.True(t, p.Matches([]string{"stratum.simpledoge.com"}))
	assert.False(t, p.Matches([]string{"other.pool.net"}))

	p = Pool{StratumURL: "stratum.simpledoge.com"}
	assert.True(t, p.Matches([]string{"", "stratum.simpledoge.com"}))
}

func TestFloat(t *testing.T) {
	v, ok := Float(12.5)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = Float("28108.5")
	assert.True(t, ok)
	assert.Equal(t, 28108.5, v)

	_, ok = Float("12abc")
	assert.False(t, ok, "trailing garbage is not a number")

	_, ok = Float(nil)
	assert.False(t, ok)
}
