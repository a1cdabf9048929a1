package wazeroimpl

// Hand-assembled wasm binaries for the linkage and execution tests. The
// modules are tiny enough that emitting the sections directly is clearer
// than depending on a wasm assembler.

const (
	secType   = 1
	secImport = 2
	secFunc   = 3
	secExport = 7
	secCode   = 10

	opUnreachable = 0x00
	opLoop        = 0x03
	opBr          = 0x0c
	opCall        = 0x10
	opI64Const    = 0x42
	opEnd         = 0x0b

	valI32 = 0x7f
	valI64 = 0x7e
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func section(id byte, count int, entries ...[]byte) []byte {
	payload := uleb(uint32(count))
	for _, e := range entries {
		payload = append(payload, e...)
	}
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

// funcType returns a type entry taking the given parameters and returning
// one i64.
func funcType(params ...byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(len(params)))...)
	out = append(out, params...)
	return append(out, 0x01, valI64)
}

func funcImport(module, field string, typeIdx uint32) []byte {
	out := name(module)
	out = append(out, name(field)...)
	out = append(out, 0x00)
	return append(out, uleb(typeIdx)...)
}

func funcExport(field string, funcIdx uint32) []byte {
	out := name(field)
	out = append(out, 0x00)
	return append(out, uleb(funcIdx)...)
}

// funcBody wraps instructions into a code entry with no locals.
func funcBody(instrs ...byte) []byte {
	b := append([]byte{0x00}, instrs...)
	b = append(b, opEnd)
	return append(uleb(uint32(len(b))), b...)
}

func wasmModule(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// markerBody backs the interface version marker export; never called.
func markerBody() []byte {
	return funcBody(opI64Const, 0)
}

// simpleModule exports the interface marker and a "run" that returns the
// given constant as a raw Val word (signed LEB, so keep it below 64).
func simpleModule(word byte) []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secFunc, 2, uleb(0), uleb(0)),
		section(secExport, 2,
			funcExport("interface_version_1", 0),
			funcExport("run", 1)),
		section(secCode, 2, markerBody(), funcBody(opI64Const, word)),
	)
}

// trapModule exports a "run" that hits unreachable.
func trapModule() []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secFunc, 2, uleb(0), uleb(0)),
		section(secExport, 2,
			funcExport("interface_version_1", 0),
			funcExport("run", 1)),
		section(secCode, 2, markerBody(), funcBody(opUnreachable)),
	)
}

// loopModule exports a "run" that spins forever; only context cancellation
// can stop it.
func loopModule() []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secFunc, 2, uleb(0), uleb(0)),
		section(secExport, 2,
			funcExport("interface_version_1", 0),
			funcExport("run", 1)),
		section(secCode, 2, markerBody(),
			funcBody(opLoop, 0x40, opBr, 0, opEnd, opI64Const, 0)),
	)
}

// hostCallModule imports one zero-argument host function and exports a "run"
// that tail-returns its result.
func hostCallModule(fn string) []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secImport, 1, funcImport("env", fn, 0)),
		section(secFunc, 2, uleb(0), uleb(0)),
		section(secExport, 2,
			funcExport("interface_version_1", 1),
			funcExport("run", 2)),
		section(secCode, 2, markerBody(), funcBody(opCall, 0)),
	)
}

// noMarkerModule omits the interface version export.
func noMarkerModule() []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secFunc, 1, uleb(0)),
		section(secExport, 1, funcExport("run", 0)),
		section(secCode, 1, funcBody(opI64Const, 0)),
	)
}

// badImportModule imports a host function that does not exist.
func badImportModule() []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secImport, 1, funcImport("env", "no_such_fn", 0)),
		section(secFunc, 1, uleb(0)),
		section(secExport, 1, funcExport("interface_version_1", 1)),
		section(secCode, 1, markerBody()),
	)
}

// foreignImportModule imports from a module other than "env".
func foreignImportModule() []byte {
	return wasmModule(
		section(secType, 1, funcType()),
		section(secImport, 1, funcImport("other", "map_new", 0)),
		section(secFunc, 1, uleb(0)),
		section(secExport, 1, funcExport("interface_version_1", 1)),
		section(secCode, 1, markerBody()),
	)
}

// badSignatureModule imports obj_cmp with an i32 parameter; the host surface
// is i64-only.
func badSignatureModule() []byte {
	return wasmModule(
		section(secType, 2, funcType(), funcType(valI32, valI64)),
		section(secImport, 1, funcImport("env", "obj_cmp", 1)),
		section(secFunc, 1, uleb(0)),
		section(secExport, 1, funcExport("interface_version_1", 1)),
		section(secCode, 1, markerBody()),
	)
}

// wrongArityModule imports map_new (arity 0) with one parameter.
func wrongArityModule() []byte {
	return wasmModule(
		section(secType, 2, funcType(), funcType(valI64)),
		section(secImport, 1, funcImport("env", "map_new", 1)),
		section(secFunc, 1, uleb(0)),
		section(secExport, 1, funcExport("interface_version_1", 1)),
		section(secCode, 1, markerBody()),
	)
}
