package desk

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xenking/product-desk/internal/domain/product"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldImages
	fieldProductURL
	fieldPrice
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Title", "Description", "Image URLs", "Product URL", "Price",
}

// createForm collects a new submission. Values survive a failed submit.
type createForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
	busy   bool
}

func newCreateForm() createForm {
	var f createForm
	placeholders := [fieldCount]string{
		"Desk lamp", "optional", "comma separated", "https://", "1499.00",
	}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 2048
		f.inputs[i] = in
	}
	f.inputs[fieldTitle].Focus()
	return f
}

func (f *createForm) input() product.Input {
	var images []string
	for _, u := range strings.Split(f.inputs[fieldImages].Value(), ",") {
		images = append(images, strings.TrimSpace(u))
	}
	return product.Input{
		Title:       f.inputs[fieldTitle].Value(),
		Description: f.inputs[fieldDescription].Value(),
		ImageURLs:   images,
		ProductURL:  f.inputs[fieldProductURL].Value(),
		Price:       f.inputs[fieldPrice].Value(),
	}
}

func (f *createForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

func (f *createForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}
