// Package actions provides ready-made actions: plain functions, delays, context
// writes, shell commands and the restart and checkout of catalogue applications.
package actions
