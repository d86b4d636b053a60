package main

import (
	"bytes"
	"strings"
	"testing"

	"appraisal/internal/domain/performance"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"launch"},
		{"add-employee"},
		{"promote"},
		{"mappings", "export"},
		{"mappings", "import"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not found: %v", path, err)
		}
	}
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		args []string
		flag string
	}{
		{[]string{"launch"}, "document"},
		{[]string{"add-employee", "--document", "PD1"}, "person"},
		{[]string{"promote"}, "ids"},
		{[]string{"mappings", "export"}, "cycle"},
		{[]string{"mappings", "import"}, "file"},
	}
	for _, tt := range tests {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(tt.args)
		err := root.Execute()
		if err == nil || !strings.Contains(err.Error(), tt.flag) {
			t.Fatalf("%v: expected missing %s flag, got %v", tt.args, tt.flag, err)
		}
	}
}

func TestImportFormat(t *testing.T) {
	tests := []struct {
		raw, path string
		want      performance.Format
		wantErr   bool
	}{
		{"", "mappings.csv", performance.FormatCSV, false},
		{"", "mappings.XLSX", performance.FormatXLSX, false},
		{"xlsx", "mappings.csv", performance.FormatXLSX, false},
		{"", "mappings", performance.FormatCSV, false},
		{"", "mappings.json", "", true},
	}
	for _, tt := range tests {
		got, err := importFormat(tt.raw, tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("importFormat(%q, %q) = %q, %v", tt.raw, tt.path, got, err)
		}
	}
}
