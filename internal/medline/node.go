package medline

import (
	"encoding/xml"
	"strings"
)

// Node is a lightweight element tree for a single record. Text holds the character data before
// the first child element and Tail the character data that follows the element inside its parent.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Tail     string
	Children []*Node
}

// UnmarshalXML builds the subtree rooted at start without recursion.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	n.Attrs = start.Attr
	stack := []*Node{n}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		cur := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{Name: t.Name.Local, Attrs: t.Attr}
			cur.Children = append(cur.Children, child)
			stack = append(stack, child)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return nil
			}
		case xml.CharData:
			if len(cur.Children) == 0 {
				cur.Text += string(t)
			} else {
				last := cur.Children[len(cur.Children)-1]
				last.Tail += string(t)
			}
		}
	}
}

// Attr returns the value of the named attribute or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Descendants returns every element below n with the given name, in document order.
func (n *Node) Descendants(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(parent *Node) {
		for _, c := range parent.Children {
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// FindAll resolves a slash separated path whose first step matches at any depth below n and
// whose remaining steps match direct children, like ".//A/B/C".
func (n *Node) FindAll(path string) []*Node {
	steps := strings.Split(path, "/")
	matches := n.Descendants(steps[0])
	for _, step := range steps[1:] {
		var next []*Node
		for _, m := range matches {
			for _, c := range m.Children {
				if c.Name == step {
					next = append(next, c)
				}
			}
		}
		matches = next
	}
	return matches
}

// Find returns the first FindAll match or nil.
func (n *Node) Find(path string) *Node {
	if found := n.FindAll(path); len(found) > 0 {
		return found[0]
	}
	return nil
}

// FindText returns the leading text of the first match and whether the element exists.
func (n *Node) FindText(path string) (string, bool) {
	found := n.Find(path)
	if found == nil {
		return "", false
	}
	return found.Text, true
}

// InnerText concatenates all text below n in document order, including inline markup.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.writeInner(&b)
	return b.String()
}

func (n *Node) writeInner(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Children {
		c.writeInner(b)
		b.WriteString(c.Tail)
	}
}

// OwnText concatenates the element's leading text with the tails of its children. Text inside
// nested inline markup is not included.
func (n *Node) OwnText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		b.WriteString(c.Tail)
	}
	return b.String()
}
