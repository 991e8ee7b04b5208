// Copyright 2024-2026 Aiku AI

package mdfmt_test

import (
	"fmt"

	"github.com/aiku/fixupx-relay/pkg/mdfmt"
)

func ExampleEscape() {
	fmt.Println(mdfmt.Italic("Originally posted by " + mdfmt.Escape("dev_ops") + ":"))
	// Output: _Originally posted by dev\_ops:_
}
