// Package filter runs a WASI image filter module over single tiles.
//
// The module must export alloc(len) -> ptr, dealloc(ptr, len) and a filter
// function fn(inPtr, inLen, outParams) -> outLen that writes the output
// pointer and length as two little-endian int32 values at outParams. Input
// and output are PNG bytes.
package filter

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/second-state/WasmEdge-go/wasmedge"
)

const DefaultFunc = "grayscale"

var pluginsOnce sync.Once

// Filter is a pool of instantiated VMs; each Apply borrows one.
type Filter struct {
	fn   string
	vms  chan *wasmedge.VM
	all  []*wasmedge.VM
	once sync.Once
}

// Open instantiates workers VMs from the module at wasmPath.
func Open(wasmPath string, workers int, fn string) (*Filter, error) {
	pluginsOnce.Do(func() {
		wasmedge.SetLogErrorLevel()
		wasmedge.LoadPluginDefaultPaths()
	})
	if workers <= 0 {
		workers = 1
	}
	if fn == "" {
		fn = DefaultFunc
	}

	f := &Filter{fn: fn, vms: make(chan *wasmedge.VM, workers)}
	for i := 0; i < workers; i++ {
		vm, err := newVM(wasmPath)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.all = append(f.all, vm)
		f.vms <- vm
	}
	return f, nil
}

func newVM(wasmPath string) (*wasmedge.VM, error) {
	conf := wasmedge.NewConfigure(wasmedge.WASI)
	defer conf.Release()
	vm := wasmedge.NewVMWithConfig(conf)
	if err := vm.LoadWasmFile(wasmPath); err != nil {
		vm.Release()
		return nil, fmt.Errorf("filter: load %s: %w", wasmPath, err)
	}
	if err := vm.Validate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("filter: validate: %w", err)
	}
	if err := vm.Instantiate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("filter: instantiate: %w", err)
	}
	return vm, nil
}

func (f *Filter) Name() string { return f.fn }

// Apply runs the filter over one encoded tile.
func (f *Filter) Apply(ctx context.Context, tile []byte) ([]byte, error) {
	var vm *wasmedge.VM
	select {
	case vm = <-f.vms:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { f.vms <- vm }()
	return run(vm, f.fn, tile)
}

func run(vm *wasmedge.VM, fn string, in []byte) ([]byte, error) {
	inLen := int32(len(in))
	allocRes, err := vm.Execute("alloc", inLen)
	if err != nil {
		return nil, fmt.Errorf("filter: alloc input: %w", err)
	}
	inPtr := allocRes[0].(int32)
	defer vm.Execute("dealloc", inPtr, inLen)

	mem := vm.GetActiveModule().FindMemory("memory")
	if mem == nil {
		return nil, fmt.Errorf("filter: module exports no memory")
	}
	inData, err := mem.GetData(uint(inPtr), uint(inLen))
	if err != nil {
		return nil, fmt.Errorf("filter: mem input: %w", err)
	}
	copy(inData, in)

	paramsRes, err := vm.Execute("alloc", int32(8))
	if err != nil {
		return nil, fmt.Errorf("filter: alloc params: %w", err)
	}
	paramsPtr := paramsRes[0].(int32)
	defer vm.Execute("dealloc", paramsPtr, int32(8))

	lenRes, err := vm.Execute(fn, inPtr, inLen, paramsPtr)
	if err != nil {
		return nil, fmt.Errorf("filter: %s: %w", fn, err)
	}
	if lenRes[0].(int32) == 0 {
		return nil, fmt.Errorf("filter: %s: zero length output", fn)
	}

	params, err := mem.GetData(uint(paramsPtr), 8)
	if err != nil {
		return nil, fmt.Errorf("filter: mem params: %w", err)
	}
	outPtr := int32(binary.LittleEndian.Uint32(params[0:4]))
	outLen := int32(binary.LittleEndian.Uint32(params[4:8]))
	defer vm.Execute("dealloc", outPtr, outLen)

	outData, err := mem.GetData(uint(outPtr), uint(outLen))
	if err != nil {
		return nil, fmt.Errorf("filter: mem output: %w", err)
	}
	return append([]byte(nil), outData...), nil
}

// Close releases every VM. Apply must not be running.
func (f *Filter) Close() {
	f.once.Do(func() {
		for _, vm := range f.all {
			vm.Release()
		}
	})
}
