package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/loader"
	rpcclient "github.com/colorfulnotion/cellvm/rpc_client"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/holiman/uint256"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTx = `{
	"version": 0,
	"deps": [],
	"inputs": [{"previous_output": {"hash": "0x3c5ff6b6bc1d3e1e1d5e1a7c1a3f0e5d4c3b2a19081726354453627180919aab", "index": 1}}],
	"outputs": [{"capacity": 5000, "lock": "0xbeef"}]
}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tx.json")
	bin := filepath.Join(dir, "tx.bin")
	require.NoError(t, os.WriteFile(in, []byte(sampleTx), 0o644))

	_, err := execute(t, "", "build", "-i", in, "-o", bin, "--check")
	require.NoError(t, err)
	got, err := os.ReadFile(bin)
	require.NoError(t, err)
	want, err := types.ConvertTransaction([]byte(sampleTx))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	out, err := execute(t, sampleTx, "build")
	require.NoError(t, err)
	assert.Equal(t, string(want), out)

	out, err = execute(t, sampleTx, "build", "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, `"capacity": 5000`)

	_, err = execute(t, `{"version": -1}`, "build")
	require.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	prev := types.Transaction{Outputs: []types.CellOutput{{Capacity: 1}, {Capacity: 700, Lock: types.Bytes{0xaa}}}}
	prevHash, err := prev.Hash()
	require.NoError(t, err)

	doc := strings.Replace(sampleTx, "0x3c5ff6b6bc1d3e1e1d5e1a7c1a3f0e5d4c3b2a19081726354453627180919aab", prevHash.Hex(), 1)

	calls := map[string]int{}
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "http://node.test", func(req *http.Request) (*http.Response, error) {
		var msg struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
			return nil, err
		}
		calls[msg.Method]++
		reply := map[string]interface{}{"jsonrpc": "2.0", "id": msg.ID}
		switch msg.Method {
		case "get_tip_header":
			reply["result"] = types.Header{Number: 77, Difficulty: uint256.NewInt(1)}
		case "get_transaction":
			var h common.Hash
			require.NoError(t, json.Unmarshal(msg.Params[0], &h))
			if h == prevHash {
				reply["result"] = types.TransactionWithHash{Hash: prevHash, Transaction: prev}
			} else {
				reply["result"] = nil
			}
		}
		return httpmock.NewJsonResponse(http.StatusOK, reply)
	})
	dialOptions = []rpcclient.Option{rpcclient.WithHTTPClient(&http.Client{Transport: mt})}
	t.Cleanup(func() { dialOptions = nil })

	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	db := filepath.Join(dir, "db")
	out, err := execute(t, doc, "resolve", "--rpc", "http://node.test", "--data", data, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "tip #77")
	assert.Contains(t, out, "Current(capacity=700, lock=aa)")
	assert.Equal(t, 1, calls["get_tip_header"])

	cell, err := loader.NewDirStore(data).Cell(types.SourceInput, 0)
	require.NoError(t, err)
	want, err := types.EncodeCellOutput(&prev.Outputs[1])
	require.NoError(t, err)
	assert.Equal(t, want, cell)

	store, err := loader.OpenLevelDBStore(db)
	require.NoError(t, err)
	defer store.Close()
	cell, err = store.Cell(types.SourceInput, 0)
	require.NoError(t, err)
	assert.Equal(t, want, cell)
}

const testEntry = 0x10000

func encI(opc, rd, f3, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | f3<<12 | rd<<7 | opc
}
func addi(rd, rs1 uint32, imm int32) uint32 { return encI(0b0010011, rd, 0, rs1, imm) }
func lui(rd uint32, imm20 uint32) uint32  { return imm20<<12 | rd<<7 | 0b0110111 }

const ecallWord = 0x00000073

// buildELF wraps code in a minimal RISC-V ELF64 executable loaded at testEntry.
func buildELF(code []byte) []byte {
	const ehsize, phsize = 64, 56
	out := make([]byte, ehsize+phsize+len(code))
	copy(out, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le := binary.LittleEndian
	le.PutUint16(out[16:], 2)
	le.PutUint16(out[18:], 243)
	le.PutUint32(out[20:], 1)
	le.PutUint64(out[24:], testEntry)
	le.PutUint64(out[32:], ehsize)
	le.PutUint16(out[52:], ehsize)
	le.PutUint16(out[54:], phsize)
	le.PutUint16(out[56:], 1)
	le.PutUint16(out[58:], 64)
	ph := out[ehsize:]
	le.PutUint32(ph[0:], 1)
	le.PutUint32(ph[4:], 5)
	le.PutUint64(ph[8:], ehsize+phsize)
	le.PutUint64(ph[16:], testEntry)
	le.PutUint64(ph[24:], testEntry)
	le.PutUint64(ph[32:], uint64(len(code)))
	le.PutUint64(ph[40:], uint64(len(code)))
	le.PutUint64(ph[48:], vm.PageSize)
	copy(out[ehsize+phsize:], code)
	return out
}

// helloScript prints "hi" through the debug syscall and exits with code.
func helloScript(t *testing.T, code int32) string {
	t.Helper()
	words := []uint32{
		lui(vm.A0, 0x10),
		addi(vm.A0, vm.A0, 32),
		lui(vm.A7, 1),
		addi(vm.A7, vm.A7, -2045), // 2051
		ecallWord,
		addi(vm.A0, vm.Zero, code),
		addi(vm.A7, vm.Zero, vm.SyscallExit),
		ecallWord,
	}
	text := make([]byte, 0, 4*len(words)+3)
	for _, w := range words {
		text = binary.LittleEndian.AppendUint32(text, w)
	}
	text = append(text, 'h', 'i', 0)
	path := filepath.Join(t.TempDir(), "hello.elf")
	require.NoError(t, os.WriteFile(path, buildELF(text), 0o644))
	return path
}

func TestRunCommand(t *testing.T) {
	script := helloScript(t, 3)
	out, err := execute(t, "", "run", script, "--data", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: hi\nResult: 3\nCycles: 8\n", out)
}

func TestRunCommandCycleLimit(t *testing.T) {
	script := helloScript(t, 0)
	out, err := execute(t, "", "run", script, "--data", t.TempDir(), "--max-cycles", "4")
	require.Error(t, err)
	assert.Contains(t, out, "Fault: CyclesExceeded\nCycles: 5\n")
}

func TestRunCommandNeedsStore(t *testing.T) {
	_, err := execute(t, "", "run", helloScript(t, 0))
	require.Error(t, err)
}

func TestDebugLoop(t *testing.T) {
	cfg := &types.RunConfig{}
	program, err := os.ReadFile(helloScript(t, 9))
	require.NoError(t, err)
	var out bytes.Buffer
	m, err := newScriptMachine(cfg, program, loader.NewDirStore(t.TempDir()), &out)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())

	lines := []string{"s 2", "r", "x 0x10020 2", "bogus", "c", "q"}
	next := func() (string, error) {
		if len(lines) == 0 {
			return "", os.ErrClosed
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	require.NoError(t, debugLoop(m, next, &out))

	s := out.String()
	assert.Contains(t, s, "pc=0x10008")
	assert.Contains(t, s, "a0  =0x0000000000010020")
	assert.Contains(t, s, "68 69")
	assert.Contains(t, s, `unknown command "bogus"`)
	assert.Contains(t, s, "DEBUG: hi")
	assert.Contains(t, s, "Result: 9\nCycles: 8\n")
}

func TestDisassemble(t *testing.T) {
	program, err := os.ReadFile(helloScript(t, 0))
	require.NoError(t, err)
	m, err := newScriptMachine(&types.RunConfig{}, program, loader.NewDirStore(t.TempDir()), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, disassemble(m, testEntry+4), "addi")
	assert.Equal(t, "?", disassemble(m, vm.MaxMemory))
}
