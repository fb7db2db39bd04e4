/*

Process of lowering

Typed Tree Text (yaml) ->
	front ->
Typed Tree (ast) ->
	lower ->
Intermediate Representation (ir) ->
	analyze ->
Verified IR ->
	format ->
IR Text

Verified IR ->
	interp ->
Result

*/
package compiler
