package device

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/picolog/pkg/dump"
	"github.com/itohio/picolog/pkg/sample"
)

// scriptedPort behaves like a serial port with a read timeout: it returns the
// scripted device output in small pieces and (0, nil) once it is exhausted.
type scriptedPort struct {
	in    []byte
	chunk int
	out   bytes.Buffer
	err   error
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.in) == 0 {
		return 0, p.err
	}
	n := min(len(b), len(p.in), p.chunk)
	copy(b, p.in[:n])
	p.in = p.in[n:]
	return n, nil
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func newScripted(in string) *scriptedPort {
	return &scriptedPort{in: []byte(in), chunk: 5}
}

func TestLink_Command(t *testing.T) {
	port := newScripted("OK\r\n0x0abc\n")
	l := newLink(port, 0)

	resp, err := l.command("set_interval", 15)
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)

	resp, err = l.command("checkadc", 0)
	require.NoError(t, err)
	assert.Equal(t, "0x0abc", resp)

	assert.Equal(t, "set_interval 15\ncheckadc 0\n", port.out.String())

	_, err = l.command("test", 1)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLink_ReadError(t *testing.T) {
	port := newScripted("")
	port.err = io.ErrClosedPipe
	l := newLink(port, 0)

	_, err := l.command("test", 1)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestLink_Sync(t *testing.T) {
	port := newScripted("ready\ngarbage\ncmd=test par=12345\nOK\n")
	l := newLink(port, 0)

	require.NoError(t, l.sync())
	assert.Equal(t, "test 12345\n", port.out.String())

	resp, err := l.command("remove", 0)
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)
}

func TestLink_SyncFails(t *testing.T) {
	assert.ErrorIs(t, newLink(newScripted("ready\n"), 0).sync(), ErrTimeout)

	var noise bytes.Buffer
	for i := 0; i < maxSyncLines+1; i++ {
		noise.WriteString("noise\n")
	}
	assert.Error(t, newLink(newScripted(noise.String()), 0).sync())
}

func TestLink_Expect(t *testing.T) {
	l := newLink(newScripted("ready\nhello\n"), 0)
	assert.NoError(t, l.expect("ready"))
	assert.Error(t, l.expect("ready"))
}

func TestLink_Dump(t *testing.T) {
	port := newScripted("0x0001 0x0002 \n0x0003 \n\n20221108 120000 000015 3\n")
	l := newLink(port, 0)

	f, err := l.dump()
	require.NoError(t, err)
	assert.Equal(t, sample.Batch{1, 2, 3}, f.Samples)
	assert.Equal(t, uint32(15), f.Interval)
	assert.Equal(t, "dump 0\n", port.out.String())
}

func TestLink_DumpErrors(t *testing.T) {
	_, err := newLink(newScripted("error: invalid data file\n"), 0).dump()
	assert.ErrorIs(t, err, dump.ErrDevice)

	_, err = newLink(newScripted("0x0001 \n"), 0).dump()
	assert.ErrorIs(t, err, ErrTimeout)
}

type fakeDevice struct {
	resp string
	err  error
}

func (d *fakeDevice) Connect() error                         { return nil }
func (d *fakeDevice) Close() error                           { return nil }
func (d *fakeDevice) IsConnected() bool                      { return true }
func (d *fakeDevice) Dump() (*dump.File, error)              { return nil, nil }
func (d *fakeDevice) Command(string, uint32) (string, error) { return d.resp, d.err }

func TestRun(t *testing.T) {
	assert.NoError(t, Run(&fakeDevice{resp: "OK"}, "remove", 0))
	assert.EqualError(t, Run(&fakeDevice{resp: "error: no data file"}, "remove", 0), "remove failed: error: no data file")

	boom := errors.New("boom")
	assert.ErrorIs(t, Run(&fakeDevice{err: boom}, "remove", 0), boom)
}

func TestReadADC(t *testing.T) {
	v, err := ReadADC(&fakeDevice{resp: "0x0abc"})
	require.NoError(t, err)
	assert.Equal(t, sample.Record(0x0abc), v)

	_, err = ReadADC(&fakeDevice{resp: "???"})
	assert.Error(t, err)
}
