package celfx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sandrolain/celfx"
	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/registry"
)

var storeJSON = `{
	"store": "GoShop",
	"products": [
		{"id": 1, "name": "Widget",      "price": 49.99,  "category": "tools", "stock": 120},
		{"id": 2, "name": "Gadget",      "price": 149.99, "category": "tech",  "stock": 3},
		{"id": 3, "name": "Doohickey",   "price": 9.99,   "category": "tools", "stock": 55},
		{"id": 4, "name": "Thingamajig", "price": 299.0,  "category": "tech",  "stock": 0},
		{"id": 5, "name": "Whatnot",     "price": 74.50,  "category": "tools", "stock": 30}
	],
	"orders": [
		{"orderId": "A1", "customer": "Alice", "amount": 249.98, "status": "shipped"},
		{"orderId": "A2", "customer": "Bob",   "amount": 9.99,   "status": "pending"},
		{"orderId": "A3", "customer": "Alice", "amount": 299.0,  "status": "shipped"}
	]
}`

// fromJSON parses raw JSON so that all numbers are float64.
func fromJSON(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Fatalf("fromJSON: %v", err)
	}
	return v
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

func ExampleEval() {
	store := fromJSON(storeJSON)

	got, err := celfx.Eval(`map_expr('name', filter_expr('stock > 0 && price < 100.0', products))`, store)
	if err != nil {
		log.Fatal(err)
	}
	printJSON(got)
	// Output: ["Widget","Doohickey","Whatnot"]
}

func ExampleCompile() {
	q := celfx.MustCompile(`round(sum(map_expr('amount', filter_expr('status == "shipped"', orders))), 2)`)

	got, err := q.Eval(context.Background(), fromJSON(storeJSON))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(got)
	// Output: 548.98
}

func ExampleEval_grouping() {
	got, err := celfx.Eval(`keys(group_by_expr('category', products))`, fromJSON(storeJSON))
	if err != nil {
		log.Fatal(err)
	}
	printJSON(got)
	// Output: ["tools","tech"]
}

func Example_registry() {
	reg := registry.New()
	_ = reg.RegisterCategory(functions.CategoryString)
	_ = reg.DisableFunction("upper")

	ev := evaluator.New()
	if err := reg.Apply(ev); err != nil {
		log.Fatal(err)
	}

	_, err := ev.Eval(context.Background(), `upper('x')`, nil)
	fmt.Println(err)

	got, _ := ev.Eval(context.Background(), `lower('X')`, nil)
	fmt.Println(got)
	// Output:
	// U0401 in upper: unknown function "upper"
	// x
}
