// Command lucid-infer recovers types for a compiled chunk by abstractly
// interpreting it, simplifying the resulting constraints, and handing what
// remains to either a Datalog or a SAT backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lucidscript/lucid/internal/constraint"
	"github.com/lucidscript/lucid/internal/constraint/absint"
	"github.com/lucidscript/lucid/internal/constraint/bytecode"
	"github.com/lucidscript/lucid/internal/constraint/datalog"
	"github.com/lucidscript/lucid/internal/constraint/declimport"
	"github.com/lucidscript/lucid/internal/constraint/satsolve"
	"github.com/lucidscript/lucid/internal/constraint/solvecache"
)

// BackendName selects which solver backend runs by default. Can be set at
// build time with: -ldflags "-X main.BackendName=sat"
var BackendName = "sat"

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	backendName := BackendName
	chunkPath := os.Args[1]
	builtinsPath := ""
	cachePath := ""
	for i := 2; i < len(os.Args)-1; i++ {
		switch os.Args[i] {
		case "-backend":
			backendName = os.Args[i+1]
		case "-builtins":
			builtinsPath = os.Args[i+1]
		case "-cache":
			cachePath = os.Args[i+1]
		}
	}

	if err := run(chunkPath, builtinsPath, cachePath, backendName); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <chunk.bin> [-backend sat|datalog] [-builtins decls.yaml] [-cache path.db]\n", os.Args[0])
}

func run(chunkPath, builtinsPath, cachePath, backendName string) error {
	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return fmt.Errorf("reading chunk: %w", err)
	}
	chunk, err := bytecode.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding chunk: %w", err)
	}

	store := constraint.NewStore()

	builtins := map[string]constraint.Type{
		"object": constraint.Object{},
		"int":    constraint.Instance{MRO: constraint.NewMRO([]*constraint.Class{{Name: "int"}}), Overrides: map[string]constraint.Type{}, Name: "int"},
		"float":  constraint.Instance{MRO: constraint.NewMRO([]*constraint.Class{{Name: "float"}}), Overrides: map[string]constraint.Type{}, Name: "float"},
		"str":    constraint.Instance{MRO: constraint.NewMRO([]*constraint.Class{{Name: "str"}}), Overrides: map[string]constraint.Type{}, Name: "str"},
		"bool":   constraint.Instance{MRO: constraint.NewMRO([]*constraint.Class{{Name: "bool"}}), Overrides: map[string]constraint.Type{}, Name: "bool"},
	}
	if builtinsPath != "" {
		raw, err := os.ReadFile(builtinsPath)
		if err != nil {
			return fmt.Errorf("reading builtins: %w", err)
		}
		res, err := declimport.Import(store, raw)
		if err != nil {
			return fmt.Errorf("importing builtins: %w", err)
		}
		for name, t := range res.Constants {
			builtins[name] = t
		}
	}

	vm := absint.New(store, builtins)
	fn := vm.MakeFunction(chunk, countParamSlots(chunk), "main")
	log.Printf("inferred: %s", fn)

	store.Simplify()
	active := store.Active()
	log.Printf("%d constraints remain after simplification", len(active))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cache *solvecache.Cache
	if cachePath != "" {
		cache, err = solvecache.Open(cachePath)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer cache.Close()
	}

	switch backendName {
	case "sat":
		return solveSAT(ctx, active, cache)
	case "datalog":
		return solveDatalog(ctx, active, cache)
	default:
		return fmt.Errorf("unknown backend %q (want sat or datalog)", backendName)
	}
}

func countParamSlots(chunk *bytecode.Chunk) int {
	max := -1
	for _, instr := range chunk.Code {
		if instr.Op == bytecode.OpGetLocal && int(instr.Operand) > max {
			max = int(instr.Operand)
		}
	}
	return max + 1
}

func solveSAT(ctx context.Context, cs []constraint.Constraint, cache *solvecache.Cache) error {
	if cache != nil {
		fp := solvecache.Fingerprint("sat", cs)
		if cached, ok, err := cache.Lookup(fp); err == nil && ok {
			log.Printf("cache hit for fingerprint %s", fp)
			fmt.Print(string(cached))
			return nil
		}
	}
	bounds, err := satsolve.SolveIterate(ctx, satsolve.DPLLBackend{}, cs)
	if err != nil {
		return fmt.Errorf("sat solve: %w", err)
	}
	var out []byte
	for name, b := range bounds {
		lower, upper := "?", "?"
		if b.Lower != nil {
			lower = b.Lower.String()
		}
		if b.Upper != nil {
			upper = b.Upper.String()
		}
		out = fmt.Appendf(out, "%s: %s .. %s\n", name, lower, upper)
	}
	fmt.Print(string(out))
	if cache != nil {
		fp := solvecache.Fingerprint("sat", cs)
		if err := cache.Store(fp, "sat", out); err != nil {
			log.Printf("warning: caching result: %v", err)
		}
	}
	return nil
}

func solveDatalog(ctx context.Context, cs []constraint.Constraint, cache *solvecache.Cache) error {
	enc := datalog.NewEncoder()
	enc.Generate(cs)
	ev := datalog.SubprocessEvaluator{Binary: "xsb"}
	results, err := datalog.Solve(ctx, ev, enc)
	if err != nil {
		return fmt.Errorf("datalog solve: %w", err)
	}
	for _, c := range results {
		fmt.Println(c.String())
	}
	return nil
}
