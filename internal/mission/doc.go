// Package mission walks the mission snapshot of a ring episode and gates dismissal.
package mission
