package cmd

import (
	"fmt"

	"github.com/illarion/cipherbox/internal/passwords"
)

// Password prints count random passwords.
func Password(length, classes, count int) {
	if count < 1 {
		count = 1
	}
	for range count {
		pw, err := passwords.Random(length, passwords.WithRequiredClasses(classes))
		if err != nil {
			Fatalf("%s", err)
		}
		fmt.Println(pw)
	}
}
