//go:build ignore
// +build ignore

// This script prints every sheet of a fleet Excel report for verification.
// Run with: go run scripts/read_excel.go [report.xlsx]
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

func main() {
	path := "sample_fleet_report.xlsx"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer f.Close()

	fmt.Println("📊 Sheets:", f.GetSheetList())

	for _, sheet := range f.GetSheetList() {
		fmt.Println()
		fmt.Println("═══════════════════════════════════════")
		fmt.Println(" ", sheet)
		fmt.Println("═══════════════════════════════════════")

		rows, err := f.GetRows(sheet)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			fmt.Println("  " + strings.Join(row, " | "))
		}
	}
}
