package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/cipherbox/internal/pem"
)

// PEMEncode wraps the DER file at path in a PEM block of the given type.
func PEMEncode(path, typ string, crlf bool) {
	if typ == "" {
		Fatalf("pem encode requires --type")
	}
	der, err := os.ReadFile(path)
	if err != nil {
		Fatalf("%s", err)
	}

	eol := "\n"
	if crlf {
		eol = "\r\n"
	}
	fmt.Print(pem.FromDER(der, typ, eol).PEM() + eol)
}

// PEMDecode writes the DER body of the PEM file at path to stdout, or
// only reports its type when typeOnly is set.
func PEMDecode(path string, typeOnly bool) {
	text, err := os.ReadFile(path)
	if err != nil {
		Fatalf("%s", err)
	}

	block, err := pem.Parse(string(text))
	if err != nil {
		Fatalf("%s", err)
	}
	if typeOnly {
		fmt.Println(block.Type())
		return
	}

	der, err := block.DER()
	if err != nil {
		Fatalf("%s", err)
	}
	if _, err := os.Stdout.Write(der); err != nil {
		Fatalf("%s", err)
	}
}
