package rules

import "unicode/utf8"

// node is one rune step in the pattern trie. rule is -1 unless a pattern
// ends here.
type node struct {
	next map[rune]*node
	rule int
}

func newNode() *node {
	return &node{rule: -1}
}

func (n *node) insert(pattern string, rule int) {
	cur := n
	for _, r := range pattern {
		child, ok := cur.next[r]
		if !ok {
			if cur.next == nil {
				cur.next = make(map[rune]*node)
			}
			child = newNode()
			cur.next[r] = child
		}
		cur = child
	}
	cur.rule = rule
}

// longest walks s from byte offset i and returns the rule index and byte
// length of the longest pattern that starts there, or -1 and 0.
func (n *node) longest(s string, i int) (rule, size int) {
	rule = -1
	cur := n
	for j := i; j < len(s); {
		r, w := utf8.DecodeRuneInString(s[j:])
		child, ok := cur.next[r]
		if !ok {
			break
		}
		j += w
		cur = child
		if cur.rule >= 0 {
			rule = cur.rule
			size = j - i
		}
	}
	return rule, size
}
