// Package controller is the operator end of the link: a line oriented
// console that turns commands into messages and prints the vehicle's
// reports.
//
//	value enable_video 1
//	camera 10 -5
//	drive 40 40
//	debug hello
package controller
