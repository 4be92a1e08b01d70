package main

import "dcc/driver"

func main() {
	driver.Execute()
}
