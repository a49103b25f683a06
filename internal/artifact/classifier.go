package artifact

import (
	"errors"
	"fmt"
	"math"

	"predictive-maintenance/internal/models"
)

// Classifier модель, возвращающая вероятности по классам
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
}

const (
	ModelLogisticRegression = "logistic_regression"
	ModelDecisionTree       = "decision_tree"
	ModelRandomForest       = "random_forest"
)

type modelDocument struct {
	Type      string         `json:"type"`
	NFeatures int            `json:"n_features"`
	Features  []string       `json:"features,omitempty"`
	Classes   []int          `json:"classes,omitempty"`
	Coef      []float64      `json:"coef,omitempty"`
	Intercept float64        `json:"intercept,omitempty"`
	Nodes     []TreeNode     `json:"nodes,omitempty"`
	Trees     []treeDocument `json:"trees,omitempty"`
}

type treeDocument struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode узел дерева в плоском массиве; у листа left = right = -1
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (n TreeNode) isLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

// LogisticRegression бинарная логистическая регрессия
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, errors.New("logistic regression: coef is empty")
	}
	return &LogisticRegression{
		coef:      append([]float64(nil), coef...),
		intercept: intercept,
	}, nil
}

func (m *LogisticRegression) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(m.coef) {
		return nil, fmt.Errorf("model expects %d features, got %d", len(m.coef), len(x))
	}

	z := m.intercept
	for i, v := range x {
		z += m.coef[i] * v
	}
	p := 1 / (1 + math.Exp(-z))
	return []float64{1 - p, p}, nil
}

// DecisionTree дерево решений; x[feature] <= threshold ведет влево
type DecisionTree struct {
	nodes     []TreeNode
	nFeatures int
	nClasses  int
}

// NewDecisionTree проверяет структуру дерева. Дочерние узлы всегда
// расположены после родителя, поэтому обход не зацикливается.
func NewDecisionTree(nodes []TreeNode, nFeatures, nClasses int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("decision tree: no nodes")
	}

	for i, node := range nodes {
		if node.isLeaf() {
			if len(node.Value) != nClasses {
				return nil, fmt.Errorf("decision tree: leaf %d has %d class weights, expected %d", i, len(node.Value), nClasses)
			}
			total := 0.0
			for _, w := range node.Value {
				if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					return nil, fmt.Errorf("decision tree: leaf %d has invalid weight %v", i, w)
				}
				total += w
			}
			if total == 0 {
				return nil, fmt.Errorf("decision tree: leaf %d has no weight", i)
			}
			continue
		}

		if node.Feature < 0 || node.Feature >= nFeatures {
			return nil, fmt.Errorf("decision tree: node %d splits on feature %d", i, node.Feature)
		}
		if node.Left <= i || node.Left >= len(nodes) || node.Right <= i || node.Right >= len(nodes) {
			return nil, fmt.Errorf("decision tree: node %d has invalid children %d/%d", i, node.Left, node.Right)
		}
	}

	return &DecisionTree{
		nodes:     nodes,
		nFeatures: nFeatures,
		nClasses:  nClasses,
	}, nil
}

func (t *DecisionTree) PredictProba(x []float64) ([]float64, error) {
	if len(x) != t.nFeatures {
		return nil, fmt.Errorf("model expects %d features, got %d", t.nFeatures, len(x))
	}

	leaf := t.leaf(x)
	total := 0.0
	for _, w := range leaf.Value {
		total += w
	}

	out := make([]float64, len(leaf.Value))
	for i, w := range leaf.Value {
		out[i] = w / total
	}
	return out, nil
}

func (t *DecisionTree) leaf(x []float64) TreeNode {
	idx := 0
	for {
		node := t.nodes[idx]
		if node.isLeaf() {
			return node
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// RandomForest усредняет распределения по классам всех деревьев
type RandomForest struct {
	trees    []*DecisionTree
	nClasses int
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("random forest: no trees")
	}
	return &RandomForest{trees: trees, nClasses: trees[0].nClasses}, nil
}

func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	out := make([]float64, f.nClasses)
	for _, tree := range f.trees {
		proba, err := tree.PredictProba(x)
		if err != nil {
			return nil, err
		}
		for i, p := range proba {
			out[i] += p
		}
	}

	n := float64(len(f.trees))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

func buildClassifier(doc modelDocument) (Classifier, error) {
	if err := checkFeatureNames(doc.Features); err != nil {
		return nil, err
	}

	nFeatures := doc.NFeatures
	if nFeatures == 0 {
		nFeatures = len(doc.Features)
	}
	if nFeatures != len(models.FeatureNames()) {
		return nil, fmt.Errorf("model fitted on %d features, expected %d", nFeatures, len(models.FeatureNames()))
	}

	nClasses := len(doc.Classes)
	if nClasses == 0 {
		nClasses = 2
	}
	if nClasses < 2 {
		return nil, fmt.Errorf("model has %d classes, expected a binary classifier", nClasses)
	}

	switch doc.Type {
	case ModelLogisticRegression:
		if nClasses != 2 {
			return nil, fmt.Errorf("logistic regression supports 2 classes, got %d", nClasses)
		}
		if len(doc.Coef) != nFeatures {
			return nil, fmt.Errorf("logistic regression has %d coefficients, expected %d", len(doc.Coef), nFeatures)
		}
		return NewLogisticRegression(doc.Coef, doc.Intercept)
	case ModelDecisionTree:
		return NewDecisionTree(doc.Nodes, nFeatures, nClasses)
	case ModelRandomForest:
		trees := make([]*DecisionTree, 0, len(doc.Trees))
		for i, td := range doc.Trees {
			tree, err := NewDecisionTree(td.Nodes, nFeatures, nClasses)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees = append(trees, tree)
		}
		return NewRandomForest(trees)
	case "":
		return nil, errors.New("model type is missing")
	default:
		return nil, fmt.Errorf("unsupported model type %q", doc.Type)
	}
}
