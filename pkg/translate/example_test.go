package translate_test

import (
	"fmt"

	"github.com/matzehuels/onnxgraph/pkg/dataflow"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
	"github.com/matzehuels/onnxgraph/pkg/translate"
)

func Example() {
	x := &dataflow.Tensor{Name: "x", DType: tensor.Float32, Shape: tensor.ShapeOf(1, 3)}
	y := &dataflow.Tensor{Name: "y", DType: tensor.Float32, Shape: tensor.ShapeOf(1, 3)}
	src := &dataflow.Graph{
		Name:    "tiny",
		Opset:   13,
		Inputs:  []*dataflow.Tensor{x},
		Outputs: []*dataflow.Tensor{y},
		Nodes: []*dataflow.Node{
			{Op: "Relu", Name: "relu", Inputs: []*dataflow.Tensor{x}, Outputs: []*dataflow.Tensor{y}},
		},
	}

	g, err := translate.Import(src, translate.ImportOptions{})
	if err != nil {
		panic(err)
	}
	for _, e := range g.Edges() {
		fmt.Println(e.From.Name(), "->", e.To.Name())
	}

	res := translate.ToModel(g, translate.ExportOptions{ProducerName: "onnxgraph"})
	fmt.Println(res.Outcome, len(res.Model.Graph.Nodes))
	// Output:
	// relu -> y
	// x -> relu
	// success 1
}
