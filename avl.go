package canadensis

// AVL tree backing the transmit frame queue. The tree is intrusive: each
// queued frame carries its own node. Keys are (CAN ID, sequence) pairs and
// therefore unique, so insertion never finds an equal node.

type avlNode struct {
	up *avlNode
	lr [2]*avlNode
	// Balance factor.
	bf   int8
	item *txItem
}

// avlInsert adds n to the tree and rebalances. n must not already be linked.
func avlInsert(root **avlNode, n *avlNode) {
	up := *root
	at := root
	for *at != nil {
		up = *at
		at = &up.lr[b2i(txItemCompare(n.item, up.item) > 0)]
	}
	*at = n
	n.up = up
	n.lr = [2]*avlNode{}
	n.bf = 0
	if rt := retraceOnGrowth(n); rt != nil {
		*root = rt
	}
}

// avlMin returns the leftmost node, the head of the queue, or nil.
func avlMin(root *avlNode) *avlNode {
	return findExtremum(root, false)
}

func findExtremum(root *avlNode, max bool) *avlNode {
	var result *avlNode
	r := b2i(max)
	c := root
	for c != nil {
		result = c
		c = c.lr[r]
	}
	return result
}

func retraceOnGrowth(added *avlNode) *avlNode {
	if added == nil || added.bf != 0 {
		panic("avl: bad retrace start")
	}
	c := added
	p := added.up
	for p != nil {
		r := p.lr[1] == c // c is the right child of parent
		c = adjustBalance(p, r)
		p = c.up
		if c.bf == 0 {
			// The height change of the subtree made this parent
			// perfectly balanced, hence the height of the outer
			// subtree is unchanged, so upper balance factors are
			// unchanged as well.
			break
		}
	}
	if p != nil {
		c = nil // New root or nothing.
	}
	return c
}

func adjustBalance(x *avlNode, increment bool) *avlNode {
	out := x
	newBf := x.bf - 1
	if increment {
		newBf = x.bf + 1
	}
	if newBf >= -1 && newBf <= 1 {
		x.bf = newBf // Balancing not needed, just update the balance factor and call it a day.
		return out
	}
	r := newBf < 0 // bf<0 if left-heavy --> right rotation is needed.
	sign := bsign(r)
	z := x.lr[b2i(!r)]
	if z.bf*sign <= 0 {
		out = z
		rotate(x, r)
		if z.bf == 0 {
			x.bf = -sign
			z.bf = sign
		} else {
			x.bf = 0
			z.bf = 0
		}
	} else {
		// Otherwise, the child needs to be rotated in the opposite direction first.
		y := z.lr[b2i(r)]
		out = y
		rotate(z, !r)
		rotate(x, r)
		if y.bf*sign < 0 {
			x.bf = sign
			y.bf = 0
			z.bf = 0
		} else if y.bf*sign > 0 {
			x.bf = 0
			y.bf = 0
			z.bf = -sign
		} else {
			x.bf = 0
			z.bf = 0
		}
	}
	return out
}

func rotate(x *avlNode, r bool) {
	z := x.lr[b2i(!r)]
	if x.up != nil {
		x.up.lr[b2i(x.up.lr[1] == x)] = z
	}
	z.up = x.up
	x.up = z
	x.lr[b2i(!r)] = z.lr[b2i(r)]
	if x.lr[b2i(!r)] != nil {
		x.lr[b2i(!r)].up = x
	}
	z.lr[b2i(r)] = x
}

func avlRemove(root **avlNode, node *avlNode) {
	if root == nil || node == nil || *root == nil {
		return
	}
	var p *avlNode // The lowest parent node that suffered a shortening of its subtree.
	r := 0         // Which side of the above was shortened.
	// The first step is to update the topology and remember the node where to start the retracing from later.
	// Balancing is not performed yet so we may end up with an unbalanced tree.
	if node.lr[0] != nil && node.lr[1] != nil {
		re := findExtremum(node.lr[1], false)
		re.bf = node.bf
		re.lr[0] = node.lr[0]
		re.lr[0].up = re
		if re.up != node {
			p = re.up // Retracing starts with the ex-parent of our replacement node.
			p.lr[0] = re.lr[1] // Reducing the height of the left subtree here.
			if p.lr[0] != nil {
				p.lr[0].up = p
			}
			re.lr[1] = node.lr[1]
			re.lr[1].up = re
			r = 0
		} else {
			// In this case, we are reducing the height of the right subtree, so r=1.
			p = re // Retracing starts with the replacement node itself as we are deleting its parent.
			r = 1  // The right child of the replacement node remains the same so we don't bother relinking it.
		}
		re.up = node.up
		if re.up != nil {
			re.up.lr[b2i(re.up.lr[1] == node)] = re // Replace link in the parent of node.
		} else {
			*root = re
		}
	} else {
		p = node.up
		rr := b2i(node.lr[1] != nil)
		if node.lr[rr] != nil {
			node.lr[rr].up = p
		}
		if p != nil {
			r = b2i(p.lr[1] == node)
			p.lr[r] = node.lr[rr]
			if p.lr[r] != nil {
				p.lr[r].up = p
			}
		} else {
			*root = node.lr[rr]
		}
	}
	if p == nil {
		return // Work is done.
	}
	// Now that the topology is updated, perform the retracing to restore balance. We climb up adjusting the
	// balance factors until we reach the root or a parent whose balance factor becomes plus/minus one, which
	// means that that parent was able to absorb the balance delta; in other words, the height of the outer
	// subtree is unchanged, so upper balance factors shall be kept unchanged.
	var c *avlNode
	for {
		c = adjustBalance(p, r == 0)
		p = c.up
		if c.bf != 0 || p == nil {
			// Reached the root or the height difference is absorbed by c.
			break
		}
		r = b2i(p.lr[1] == c)
	}
	if p == nil {
		*root = c
	}
}
