package report

import (
	"fmt"
	"strings"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// placed is a tree node with its drawing position.
type placed struct {
	node  *model.Node
	x, y  float64
	label string
}

// layoutTree assigns leaves consecutive x positions from the left and
// centres every internal node over its children. Depth grows downwards.
func layoutTree(root *model.Node, schema data.Schema) (nodes []placed, edges [][2]int) {
	next := 0.0
	var visit func(n *model.Node, depth int) int
	visit = func(n *model.Node, depth int) int {
		id := len(nodes)
		nodes = append(nodes, placed{node: n, y: -float64(depth), label: NodeLabel(n, schema)})
		if n.Leaf {
			nodes[id].x = next
			next++
			return id
		}
		l := visit(n.Left, depth+1)
		r := visit(n.Right, depth+1)
		nodes[id].x = (nodes[l].x + nodes[r].x) / 2
		edges = append(edges, [2]int{id, l}, [2]int{id, r})
		return id
	}
	visit(root, 0)
	return nodes, edges
}

// NodeLabel describes a node: the split rule that sends records left for
// internal nodes, the predicted class with its Good share and size for leaves.
func NodeLabel(n *model.Node, schema data.Schema) string {
	if n.Leaf {
		cls := data.Bad
		if n.Proba() >= 0.5 {
			cls = data.Good
		}
		return fmt.Sprintf("%s\n%.2f (n=%d)", cls, n.Proba(), n.N)
	}
	name := fmt.Sprintf("x%d", n.Feature)
	if n.Feature < len(schema.Features) {
		name = schema.Features[n.Feature].Name
	}
	if !n.Categorical {
		return fmt.Sprintf("%s <= %g", name, n.Threshold)
	}
	var left []string
	for l, side := range n.Route {
		if side < 0 {
			left = append(left, schema.Format(n.Feature, float64(l)))
		}
	}
	return fmt.Sprintf("%s in {%s}", name, strings.Join(left, ","))
}

// PlotTree draws the tree with lines and node labels. The image format
// follows the extension of path (.svg or .png).
func PlotTree(path string, tree *model.DecisionTreeClassifier, schema data.Schema) error {
	if tree.Root == nil {
		return errors.New("report: tree not trained")
	}
	nodes, edges := layoutTree(tree.Root, schema)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pruned CART (cp = %.4f)", tree.SelectedCP)
	p.HideAxes()

	for _, e := range edges {
		a, b := nodes[e[0]], nodes[e[1]]
		line, err := plotter.NewLine(plotter.XYs{{X: a.x, Y: a.y}, {X: b.x, Y: b.y}})
		if err != nil {
			return errors.Wrap(err, "tree edge")
		}
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Color = plotutil.Color(2)
		p.Add(line)
	}

	pts := make(plotter.XYs, len(nodes))
	labels := make([]string, len(nodes))
	minDepth := 0.0
	for i, n := range nodes {
		pts[i] = plotter.XY{X: n.x, Y: n.y}
		labels[i] = n.label
		if n.y < minDepth {
			minDepth = n.y
		}
	}
	dots, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "tree nodes")
	}
	dots.GlyphStyle.Shape = draw.CircleGlyph{}
	dots.GlyphStyle.Radius = vg.Points(3)
	p.Add(dots)

	text, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "tree labels")
	}
	text.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(4)}
	p.Add(text)

	leaves := tree.NumLeaves()
	p.X.Min, p.X.Max = -0.5, float64(leaves)-0.5
	p.Y.Min, p.Y.Max = minDepth-0.5, 0.5

	width := vg.Length(2+1.6*float64(leaves)) * vg.Inch
	height := vg.Length(2-1.2*minDepth) * vg.Inch
	return errors.Wrapf(p.Save(width, height, path), "save %s", path)
}
