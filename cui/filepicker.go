package cui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const pageSize = 25

var (
	ErrCanceled = errors.New("canceled")

	dirStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	pageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// Only files with these extensions are offered; the receiver sniffs content anyway.
	mediaExts = []string{".jpg", ".jpeg", ".png", ".gif", ".mp4"}
)

// FilePicker browses directories for one media file to send.
type FilePicker struct {
	dir    string
	filter string
	page   int
}

func NewFilePicker(dir string) *FilePicker {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &FilePicker{dir: abs}
}

// entries lists subdirectories first, then media files, both by name.
func (f *FilePicker) entries() ([]os.DirEntry, error) {
	all, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	filterLower := strings.ToLower(f.filter)

	var entries []os.DirEntry
	for _, e := range all {
		name := strings.ToLower(e.Name())
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() && !slices.Contains(mediaExts, filepath.Ext(name)) {
			continue
		}
		if filterLower != "" && !strings.Contains(name, filterLower) {
			continue
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	return entries, nil
}

// Run shows the picker until a file is chosen.
func (f *FilePicker) Run() (string, error) {
	for {
		entries, err := f.entries()
		if err != nil {
			return "", err
		}

		totalPages := max((len(entries)+pageSize-1)/pageSize, 1)
		f.page = min(max(f.page, 0), totalPages-1)

		var options []huh.Option[string]

		if f.dir != "/" {
			options = append(options, huh.NewOption("../", "up"))
		}

		filterText := "Filter files"
		if f.filter != "" {
			filterText = fmt.Sprintf("Filter: '%s'", f.filter)
		}
		options = append(options, huh.NewOption(filterText, "filter"))

		if totalPages > 1 {
			info := fmt.Sprintf("Page %d of %d (%d items)", f.page+1, totalPages, len(entries))
			options = append(options, huh.NewOption(pageStyle.Render(info), "page_info"))

			if f.page > 0 {
				options = append(options, huh.NewOption("<-", "prev_page"))
			}
			if f.page < totalPages-1 {
				options = append(options, huh.NewOption("->", "next_page"))
			}
		}

		start := f.page * pageSize
		end := min(start+pageSize, len(entries))

		for _, entry := range entries[start:end] {
			path := filepath.Join(f.dir, entry.Name())
			options = append(options, huh.NewOption(entryLabel(entry), path))
		}

		options = append(options, huh.NewOption("Cancel", "cancel"))

		var selected string
		err = huh.NewSelect[string]().
			Title(fmt.Sprintf("Choose a file in %s", f.dir)).
			Options(options...).
			Value(&selected).
			Height(20).
			Run()
		if err != nil {
			return "", err
		}

		switch selected {
		case "cancel":
			return "", ErrCanceled
		case "up":
			f.dir = filepath.Dir(f.dir)
			f.page = 0
		case "filter":
			if err := f.askFilter(); err != nil {
				return "", err
			}
		case "prev_page":
			f.page--
		case "next_page":
			f.page++
		case "page_info":
		default:
			stat, err := os.Stat(selected)
			if err != nil {
				continue
			}
			if !stat.IsDir() {
				return selected, nil
			}
			f.dir = selected
			f.filter = ""
			f.page = 0
		}
	}
}

func (f *FilePicker) askFilter() error {
	var filter string

	err := huh.NewInput().
		Title("Filter:").
		Value(&filter).
		Placeholder(f.filter).
		Run()
	if err != nil {
		return err
	}

	f.filter = strings.TrimSpace(filter)
	f.page = 0
	return nil
}

func entryLabel(entry os.DirEntry) string {
	if entry.IsDir() {
		return dirStyle.Render(entry.Name() + "/")
	}

	info, err := entry.Info()
	if err != nil {
		return entry.Name()
	}
	return fmt.Sprintf("%-40s %s", entry.Name(), humanize.Bytes(uint64(info.Size())))
}
