/*
Package fort reads and writes the minimal slice of the solver's artifact
files that the orchestration core needs: enough of the grid file to know
node positions, depths and open boundaries; enough of the global output
files to extract and compare time series; and the small coupling artifacts
(shape file, control files, boundary-condition file, node/element maps) that
this toolchain owns outright.

Everything else about the fort.* family is treated as opaque: the solver
reads and writes those files, the orchestrator only checks that they exist.

File names follow the established convention of the subdomain-modeling
toolchain:

	fort.14            grid (nodes, elements, open boundaries)
	fort.15            model control (copied fulldomain -> subdomain)
	fort.015           subdomain-modeling control file
	fort.019           boundary-condition forcing for the subdomain run
	fort.22*           meteorological forcing (symlinked, opaque)
	fort.63 / fort.64  global elevation / velocity time series
	fort.063/fort.064  region-limited output written during a fulldomain run
	maxele.63 et al.   non-time-varying extrema
	shape.e14/.c14     extraction-region geometry (ellipse / circle)
	py.140 / py.141    subdomain-to-fulldomain node / element maps
*/
package fort
