package chat

import "sync"

// Selection is either Idle (no conversation open) or Active with an id.
type Selection struct {
	id     int64
	active bool
}

func NoSelection() Selection {
	return Selection{}
}

func Selected(id int64) Selection {
	return Selection{id: id, active: true}
}

func (s Selection) ID() (int64, bool) {
	return s.id, s.active
}

func (s Selection) Active() bool {
	return s.active
}

// SelectionController owns the active conversation and whether the persona
// configuration is open for it. An active selection always names a
// conversation known to the directory.
type SelectionController struct {
	mu         sync.RWMutex
	directory  *Directory
	current    Selection
	configOpen bool
}

func NewSelectionController(directory *Directory) *SelectionController {
	return &SelectionController{directory: directory}
}

// Select makes id active. Unknown ids leave the selection untouched and
// report false.
func (c *SelectionController) Select(id int64) bool {
	if !c.directory.Exists(id) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.active && c.current.id == id {
		return true
	}
	c.current = Selected(id)
	c.configOpen = false
	return true
}

func (c *SelectionController) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = NoSelection()
	c.configOpen = false
}

func (c *SelectionController) Current() Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *SelectionController) OpenConfig() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current.active {
		return false
	}
	c.configOpen = true
	return true
}

func (c *SelectionController) CloseConfig() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configOpen = false
}

func (c *SelectionController) ConfigOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configOpen
}
