package spy_test

import (
	"fmt"
	"strconv"

	"github.com/Mindburn-Labs/callspy/pkg/spy"
)

func Example() {
	parse := spy.New(strconv.Atoi)

	fmt.Println(parse.Call("1"))
	fmt.Println(parse.Call("fail"))

	args, _ := parse.LastArgs()
	_, ok := parse.LastResult()
	fmt.Println(parse.CallCount(), args, ok, parse.LastErr() != nil)
	// Output:
	// 1
	// 0
	// 2 fail false true
}

func ExampleNewDynamic() {
	s := spy.NewDynamic(nil)
	s.Invoke()

	args, _ := s.LastArgs()
	fmt.Println(s.Called(), s.CallCount(), len(args))
	// Output: true 1 0
}
