package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/deepnoodle-ai/wonton/assert"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/cfg"
)

func build(t *testing.T, name string, instrs []bytecode.Instruction, regions []bytecode.CatchRegion) *bytecode.Function {
	t.Helper()
	nop := zerolog.Nop()
	fn, err := cfg.Build(instrs, regions, &cfg.Config{Name: name, Logger: &nop})
	assert.NoError(t, err)
	return fn
}

func guarded(t *testing.T) *bytecode.Function {
	return build(t, "LFoo;.f:(I)V", []bytecode.Instruction{
		{Address: 0x0, Opcode: "if-eqz", Operands: "v0, 0003 // +0003"},
		{Address: 0x2, Opcode: "throw", Operands: "v0"},
		{Address: 0x3, Opcode: "return-void"},
	}, []bytecode.CatchRegion{{
		Start:    0x0,
		End:      0x3,
		Handlers: []bytecode.Handler{{Key: bytecode.Wildcard(), Target: 0x3}},
	}})
}

func TestDOT(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, DOT(&buf, guarded(t)))
	assert.Equal(t, `digraph "LFoo;.f:(I)V" {
  rankdir=TB;
  node [shape=box, fontname="Courier"];
  func_entry [shape=oval];
  func_entry -> block_0000 [label="F"];
  block_0000 [label="block_0000\l0000: if-eqz v0, 0003 // +0003\l"];
  block_0000 -> block_0003 [label="T"];
  block_0000 -> block_0002 [label="F"];
  block_0000 -> block_0003 [label="<any>", style=dashed];
  block_0002 [label="block_0002\l0002: throw v0\l"];
  block_0002 -> block_0003;
  block_0002 -> block_0003 [label="<any>", style=dashed];
  block_0003 [label="block_0003\l0003: return-void\l"];
  block_0003 -> func_exit;
  func_exit [shape=oval];
}
`, buf.String())
}

func TestDOTEscapesStrings(t *testing.T) {
	fn := build(t, "", []bytecode.Instruction{
		{Address: 0x0, Opcode: "const-string", Operands: `v0, "a\nb" // string@0001`},
		{Address: 0x2, Opcode: "return-object", Operands: "v0"},
	}, nil)
	var buf bytes.Buffer
	assert.NoError(t, DOT(&buf, fn))
	assert.Contains(t, buf.String(), `0000: const-string v0, \"a\\nb\" // string@0001\l`)
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, JSON(&buf, guarded(t)))

	var g Graph
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &g))
	assert.Equal(t, "LFoo;.f:(I)V", g.Name)
	assert.Len(t, g.Blocks, 5)
	assert.Equal(t, "func_entry", g.Blocks[0].Name)
	assert.Equal(t, bytecode.EntryAddress, g.Blocks[0].Start)

	cond := g.Blocks[1]
	assert.Equal(t, []GraphInstruction{{Address: "0000", Opcode: "if-eqz", Operands: "v0, 0003 // +0003"}}, cond.Instructions)
	assert.Equal(t, []GraphEdge{
		{Label: "taken", Target: "block_0003"},
		{Label: "fallthrough", Target: "block_0002"},
	}, cond.Successors)
	assert.Equal(t, []GraphCatch{{Exception: "<any>", Target: "block_0003"}}, cond.Catches)

	assert.Empty(t, g.Blocks[4].Successors)
	assert.Contains(t, buf.String(), `"exception": "<any>"`)
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Text(&buf, guarded(t)))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "LFoo;.f:(I)V\n"))
	for _, want := range []string{
		"BLOCK",
		"func_entry",
		"block_0000",
		"if-eqz v0, 0003 // +0003",
		"taken block_0003, fallthrough block_0002",
		"<any> block_0003",
		"unconditional func_exit",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat(" DOT ")
	assert.NoError(t, err)
	assert.Equal(t, FormatDOT, f)
	_, err = ParseFormat("svg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	fn := guarded(t)
	for _, f := range Formats {
		var buf bytes.Buffer
		assert.NoError(t, Write(&buf, f, fn), f)
		assert.NotEmpty(t, buf.String())
	}
	assert.Error(t, Write(&bytes.Buffer{}, Format("svg"), fn))
}
