package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"app/main.PY":     ".py",
		"Makefile":        "",
		".env":            "",
		"conf/.env.local": ".local",
		"a/b.tar.gz":      ".gz",
	}

	for in, want := range tests {
		assert.Equal(t, want, Extension(in), in)
	}
}

func TestTagRoles(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		text    string
		primary string
		tags    []string
	}{
		{
			name:    "python calc module",
			path:    "core/calculations.py",
			text:    "import numpy as np\n",
			primary: "calc",
			tags:    []string{"calc", "python"},
		},
		{
			name:    "streamlit page",
			path:    "app/pages/offer.py",
			text:    "import streamlit as st\nfrom reportlab.pdfgen import canvas\n",
			primary: "ui",
			tags:    []string{"ui", "python", "streamlit", "pdf"},
		},
		{
			name:    "frontend wins",
			path:    "apps/web/src/App.tsx",
			text:    "import React from 'react'\n",
			primary: "frontend",
			tags:    []string{"frontend", "react", "ui"},
		},
		{
			name:    "domain words",
			path:    "notes/readme.md",
			text:    "Wärmepumpe und Photovoltaik im CRM",
			primary: "misc",
			tags:    []string{"heatpump", "pv", "crm"},
		},
		{
			name:    "no tags",
			path:    "bin/tool",
			primary: "misc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, tags := TagRoles(tt.path, Extension(tt.path), []byte(tt.text))
			assert.Equal(t, tt.primary, primary)
			assert.Equal(t, tt.tags, tags)
		})
	}
}

func TestNewInventoryEntry_Lines(t *testing.T) {
	file := m.File{ShortPath: "a/x.txt", Size: 12}

	assert.Equal(t, 3, NewInventoryEntry(file, []byte("one\ntwo\n")).Lines)
	assert.Equal(t, 1, NewInventoryEntry(file, []byte("one")).Lines)
	assert.Equal(t, 0, NewInventoryEntry(file, nil).Lines)
	assert.Equal(t, int64(12), NewInventoryEntry(file, nil).Size)
}

func TestBuildStructure(t *testing.T) {
	entries := []m.InventoryEntry{
		{Path: "b/z.py", PrimaryRole: "python"},
		{Path: "a.py", PrimaryRole: "python"},
		{Path: "b/c/d/e.yaml", PrimaryRole: "yaml"},
		{Path: "b/y.yaml", PrimaryRole: "yaml"},
		{Path: "b-c.txt", PrimaryRole: "misc"},
	}

	report := BuildStructure(entries)

	assert.Equal(t, 5, report.TotalFiles)
	assert.Equal(t, m.Path("a.py"), report.Entries[0].Path)

	wantDirs := []m.DirSummary{
		{Dir: ".", Files: 2, Roles: []string{"misc", "python"}},
		{Dir: "b", Files: 2, Roles: []string{"python", "yaml"}},
		{Dir: "b/c/d", Files: 1, Roles: []string{"yaml"}},
	}
	if diff := cmp.Diff(wantDirs, report.Dirs); diff != "" {
		t.Errorf("Dirs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "📄 a.py\n📁 b\n  📁 c\n    📁 d\n  📄 y.yaml\n  📄 z.py\n📄 b-c.txt", report.TreeShort)
	assert.Equal(t, "📄 a.py\n📁 b\n  📁 c\n    📁 d\n      📄 e.yaml\n  📄 y.yaml\n  📄 z.py\n📄 b-c.txt", report.TreeFull)
}
