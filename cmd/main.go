package main

import (
	"context"
	"fmt"
	"os"

	dbm "github.com/cometbft/cometbft-db"

	hostvm "github.com/hostvm/hostvm"
	"github.com/hostvm/hostvm/types"
)

const (
	cpuLimit = 100_000_000
	memLimit = 64 << 20
)

// Demo driver: store a wasm contract, register it and run one exported
// function against an in-memory ledger.
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <contract.wasm> <function> [args...]\n", os.Args[0])
		os.Exit(1)
	}
	file, function := os.Args[1], os.Args[2]

	code, err := os.ReadFile(file)
	if err != nil {
		fail("read %s: %v", file, err)
	}

	vm := hostvm.NewVM(hostvm.VMConfig{MemoryLimitPages: 512})
	checksum, err := vm.StoreCode(context.Background(), code)
	if err != nil {
		fail("store code: %v", err)
	}
	fmt.Printf("Stored %s (checksum %s)\n", file, checksum)

	var id types.ContractID
	copy(id[:], checksum.Bytes())
	if err := vm.RegisterContract(id, checksum); err != nil {
		fail("register contract: %v", err)
	}

	args := make([]any, 0, len(os.Args)-3)
	for _, raw := range os.Args[3:] {
		args = append(args, raw)
	}

	res, err := vm.Invoke(context.Background(), hostvm.InvokeParams{
		Contract: id,
		Function: function,
		Args:     args,
		Snapshot: dbm.NewMemDB(),
		CpuLimit: cpuLimit,
		MemLimit: memLimit,
	})
	if err != nil {
		fail("invoke: %v", err)
	}

	fmt.Printf("State:  %s\n", res.State)
	fmt.Printf("Cost:   cpu %d/%d, mem %d/%d\n",
		res.Cost.CpuConsumed, res.Cost.CpuLimit, res.Cost.MemConsumed, res.Cost.MemLimit)
	if res.State != hostvm.StateCompleted {
		fail("contract failed: %v", res.Err)
	}
	fmt.Printf("Result: %v\n", res.Value)
	for _, ev := range res.Events {
		fmt.Printf("Event:  [%s] %v: %v\n", ev.Type, ev.Topics, ev.Data)
	}
	for _, change := range res.Delta {
		action := "put"
		if change.Deleted {
			action = "del"
		}
		fmt.Printf("Delta:  %s %x\n", action, change.Key)
	}
	if n := len(res.Diagnostics); n > 0 {
		fmt.Printf("Logs:   %d diagnostic event(s)\n", n)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
