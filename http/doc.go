// Package http provides Laravel-style request and response helpers and the
// container debug endpoints built on them.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//	status := req.Query("status", "constructible")
//	key := req.RouteParam("key")  // unescaped chi param
//	var body struct{ Keys []string `json:"keys"` }
//	err := req.Bind(&body)         // JSON only
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(data)              // 200 {"data": ...}
//	res.NotFound()                 // 404 {"message": "Not found."}
//	res.Problem(410, msg, fields)  // {"message": msg, ...fields}
//	res.ValidationError(errs)      // 422 {"errors": {"field": ["msg"]}}
//	res.YAML(200, v)
//
// # Debug endpoints
//
//	debug := gohttp.NewDebug(c, nil, logger)
//	router.Prefix("/_container", debug.Routes)
//
//	GET  /_container/                   summary
//	GET  /_container/services           ?status= &initialized= &tag=
//	GET  /_container/services/{key}     404 unknown, 410 removed
//	GET  /_container/aliases
//	GET  /_container/tags
//	GET  /_container/manifest           YAML dump
//	POST /_container/warm               {"keys": [...]}
package http
