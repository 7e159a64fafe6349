// Package server exposes population sessions over websockets.
//
// Every connection to /ws gets its own [sim.Runner]. Clients send JSON
// commands and receive a snapshot frame after every tick and every
// accepted command:
//
//	{"cmd":"start"}
//	{"cmd":"pause"}
//	{"cmd":"reset"}
//	{"cmd":"set_param","name":"r1","value":1.2}
//	{"cmd":"set_params","params":{"a":0.05,"b":0.05}}
//	{"cmd":"set_model","model":"competition"}
//
// Rejected commands are answered with {"type":"error","error":"..."}.
package server
