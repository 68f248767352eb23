// teenyp - class file inspector: disassembles methods or dumps the
// parsed image as canonical CBOR
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/teenyjvm/pkg/classfile"
	"github.com/chazu/teenyjvm/pkg/interp"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	imageOut := flag.String("image", "", "Write the parsed class as canonical CBOR to this path instead of disassembling")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "USAGE: %s [options] <class file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  teenyp Main.class                # print a bytecode listing\n")
		fmt.Fprintf(os.Stderr, "  teenyp -image Main.cbor Main.class  # dump the parsed image\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "USAGE: %s [options] <class file>\n", os.Args[0])
		os.Exit(1)
	}
	classPath := flag.Arg(0)

	commonlog.Configure(*verbosity, nil)

	file, err := os.Open(classPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", classPath, err)
		os.Exit(1)
	}
	class, err := classfile.Parse(file)
	file.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", classPath, err)
		os.Exit(1)
	}

	if *imageOut != "" {
		data, err := classfile.Marshal(class)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding image: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*imageOut, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *imageOut, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *imageOut, len(data))
		return
	}

	fmt.Print(interp.Disassemble(class))
}
