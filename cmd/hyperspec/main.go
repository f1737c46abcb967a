package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/json"
	"github.com/hyperspec/hyperspec-go/msgpack"
	"github.com/hyperspec/hyperspec-go/toml"
	"github.com/hyperspec/hyperspec-go/yaml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "convert":
		convertCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "hyperspec CLI\n\nUsage:\n  hyperspec convert -from FORMAT -to FORMAT [-i in] [-o out]\n  hyperspec check -format FORMAT [-i in] [-max-depth N] [-max-bytes N] [-strict-dups]\n\nFormats: json, msgpack, yaml, toml")
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var from, to, in, out string
	fs.StringVar(&from, "from", "", "input format")
	fs.StringVar(&to, "to", "", "output format")
	fs.StringVar(&in, "i", "", "input file (default stdin)")
	fs.StringVar(&out, "o", "", "output file (default stdout)")
	_ = fs.Parse(args)
	if from == "" || to == "" {
		fs.Usage()
		os.Exit(2)
	}

	data := readInput(in)
	v, err := decodeAny(from, data, hyperspec.DecodeOptions{})
	if err != nil {
		fatalf("decode %s: %v", from, err)
	}
	enc, err := encodeAny(to, v)
	if err != nil {
		fatalf("encode %s: %v", to, err)
	}
	writeOutput(out, enc)
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var format, in string
	var maxDepth, maxBytes int
	var strictDups bool
	fs.StringVar(&format, "format", "json", "input format")
	fs.StringVar(&in, "i", "", "input file (default stdin)")
	fs.IntVar(&maxDepth, "max-depth", 0, "maximum nesting depth (0 = unlimited)")
	fs.IntVar(&maxBytes, "max-bytes", 0, "maximum input size in bytes (0 = unlimited)")
	fs.BoolVar(&strictDups, "strict-dups", false, "reject duplicate object keys")
	_ = fs.Parse(args)

	opts := hyperspec.DecodeOptions{
		Limits: hyperspec.Limits{
			MaxDepth:            maxDepth,
			MaxBytes:            int64(maxBytes),
			RejectDuplicateKeys: strictDups,
		},
	}
	data := readInput(in)
	if _, err := decodeAny(format, data, opts); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func decodeAny(format string, data []byte, opts hyperspec.DecodeOptions) (any, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.Unmarshal(data, hyperspec.Any(), opts)
	case "msgpack":
		return msgpack.Unmarshal(data, hyperspec.Any(), opts)
	case "yaml":
		return yaml.Unmarshal(data, hyperspec.Any(), opts)
	case "toml":
		return toml.Unmarshal(data, hyperspec.Any(), opts)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func encodeAny(format string, v any) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.Marshal(v)
	case "msgpack":
		return msgpack.Marshal(v)
	case "yaml":
		return yaml.Marshal(v)
	case "toml":
		return toml.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func readInput(path string) []byte {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("reading stdin: %v", err)
		}
		return data
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading input: %v", err)
	}
	return data
}

func writeOutput(path string, data []byte) {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			fatalf("writing stdout: %v", err)
		}
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatalf("writing output: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
