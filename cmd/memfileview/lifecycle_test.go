package main

import (
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestAllocateKey tests that 'a' creates a file-backed block
func TestAllocateKey(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)

	t.Log("Pressing 'a' to allocate")
	helper.SendKeyRune('a')

	if got := helper.GetBlockCount(); got != 1 {
		t.Fatalf("Expected 1 block, got %d", got)
	}

	b := helper.GetSelectedBlock()
	if b == nil {
		t.Fatal("Expected the new block to be selected")
	}
	if len(b.buf) != DefaultBlockSize {
		t.Errorf("Expected a %d byte block, got %d", DefaultBlockSize, len(b.buf))
	}

	if _, err := os.Stat(b.path); err != nil {
		t.Errorf("Backing file should exist: %v", err)
	}

	if got := helper.GetAllocator().Stats().Live; got != 1 {
		t.Errorf("Expected 1 live allocation, got %d", got)
	}

	t.Log("✓ Allocate key works correctly")
}

// TestGrowKey tests that 'g' doubles the selected block
func TestGrowKey(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')

	pathBefore := helper.GetSelectedBlock().path

	t.Log("Pressing 'g' to grow")
	helper.SendKeyRune('g')

	b := helper.GetSelectedBlock()
	if b == nil {
		t.Fatal("Block should survive a grow")
	}
	if len(b.buf) != DefaultBlockSize*2 {
		t.Errorf("Expected %d bytes after grow, got %d", DefaultBlockSize*2, len(b.buf))
	}
	if b.path != pathBefore {
		t.Errorf("Backing path should not change across a grow: %s != %s", b.path, pathBefore)
	}

	info, err := os.Stat(b.path)
	if err != nil {
		t.Fatalf("Backing file should exist: %v", err)
	}
	if info.Size() != int64(DefaultBlockSize*2) {
		t.Errorf("Backing file should be %d bytes, got %d", DefaultBlockSize*2, info.Size())
	}

	t.Log("✓ Grow key works correctly")
}

// TestShrinkKey tests that 's' halves the selected block
func TestShrinkKey(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')

	t.Log("Pressing 's' to shrink")
	helper.SendKeyRune('s')

	b := helper.GetSelectedBlock()
	if b == nil {
		t.Fatal("Block should survive a shrink")
	}
	if len(b.buf) != DefaultBlockSize/2 {
		t.Errorf("Expected %d bytes after shrink, got %d", DefaultBlockSize/2, len(b.buf))
	}

	t.Log("✓ Shrink key works correctly")
}

// TestShrinkStopsAtOneByte tests the shrink floor
func TestShrinkStopsAtOneByte(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')

	// 256 -> 1 takes eight halvings
	for i := 0; i < 8; i++ {
		helper.SendKeyRune('s')
	}

	b := helper.GetSelectedBlock()
	if b == nil {
		t.Fatal("Block should still be live")
	}
	if len(b.buf) != 1 {
		t.Fatalf("Expected a 1 byte block, got %d", len(b.buf))
	}

	t.Log("Pressing 's' once more at the floor")
	helper.SendKeyRune('s')

	b = helper.GetSelectedBlock()
	if b == nil || len(b.buf) != 1 {
		t.Error("Shrinking a 1 byte block should be refused, not applied")
	}
	if got := helper.GetModel().statusMessage; !strings.Contains(got, "cannot shrink") {
		t.Errorf("Expected a refusal status message, got %q", got)
	}

	t.Log("✓ Shrink floor works correctly")
}

// TestFreeKey tests that 'f' releases the selected block and its file
func TestFreeKey(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')
	helper.SendKeyRune('a')

	if got := helper.GetBlockCount(); got != 2 {
		t.Fatalf("Expected 2 blocks, got %d", got)
	}

	// Second allocation is selected
	path := helper.GetSelectedBlock().path

	t.Log("Pressing 'f' to free the selected block")
	helper.SendKeyRune('f')

	if got := helper.GetBlockCount(); got != 1 {
		t.Errorf("Expected 1 block after free, got %d", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Backing file should be deleted, stat returned %v", err)
	}
	if got := helper.GetAllocator().Stats().Live; got != 1 {
		t.Errorf("Expected 1 live allocation, got %d", got)
	}

	// Selection clamps onto the survivor
	if b := helper.GetSelectedBlock(); b == nil {
		t.Error("A surviving block should be selected")
	}

	t.Log("✓ Free key works correctly")
}

// TestFreeLastBlock tests freeing the only block leaves a consistent model
func TestFreeLastBlock(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')
	helper.SendKeyRune('f')

	if got := helper.GetBlockCount(); got != 0 {
		t.Fatalf("Expected no blocks, got %d", got)
	}
	if b := helper.GetSelectedBlock(); b != nil {
		t.Error("No block should be selected")
	}

	// Operations on an empty list are no-ops
	helper.SendKeyRune('g')
	helper.SendKeyRune('s')
	helper.SendKeyRune('f')

	if got := helper.GetAllocator().Stats().Live; got != 0 {
		t.Errorf("Expected no live allocations, got %d", got)
	}

	t.Log("✓ Freeing the last block works correctly")
}

// TestListNavigation tests moving the selection with the arrow keys
func TestListNavigation(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')
	helper.SendKeyRune('a')
	helper.SendKeyRune('a')

	// The newest allocation is selected
	if got := helper.GetModel().selected; got != 2 {
		t.Fatalf("Expected selection on block 2, got %d", got)
	}

	helper.SendKey(tea.KeyUp)
	if got := helper.GetModel().selected; got != 1 {
		t.Errorf("Expected selection on block 1 after Up, got %d", got)
	}

	helper.SendKey(tea.KeyUp)
	helper.SendKey(tea.KeyUp) // clamps at the top
	if got := helper.GetModel().selected; got != 0 {
		t.Errorf("Expected selection clamped at 0, got %d", got)
	}

	helper.SendKey(tea.KeyDown)
	if got := helper.GetModel().selected; got != 1 {
		t.Errorf("Expected selection on block 1 after Down, got %d", got)
	}

	helper.SendKey(tea.KeyEnd)
	if got := helper.GetModel().selected; got != 2 {
		t.Errorf("Expected End to select the last block, got %d", got)
	}

	helper.SendKey(tea.KeyHome)
	if got := helper.GetModel().selected; got != 0 {
		t.Errorf("Expected Home to select the first block, got %d", got)
	}

	t.Log("✓ List navigation works correctly")
}

// TestCloseFreesEverything tests that Close releases all live blocks
func TestCloseFreesEverything(t *testing.T) {
	helper := NewTestHelper(t.TempDir())
	helper.SendWindowSize(120, 40)
	helper.SendKeyRune('a')
	helper.SendKeyRune('a')
	helper.SendKeyRune('a')

	paths := make([]string, 0, 3)
	for _, b := range helper.GetModel().blocks {
		paths = append(paths, b.path)
	}

	if err := helper.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := helper.GetAllocator().Stats().Live; got != 0 {
		t.Errorf("Expected no live allocations after Close, got %d", got)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Backing file %s should be deleted, stat returned %v", p, err)
		}
	}

	t.Log("✓ Close frees everything correctly")
}
