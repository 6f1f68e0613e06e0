package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/olrwebtool/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type openlrAPI struct {
	decodeService   DecodeService
	networkService  NetworkService
	analysisService AnalysisService
	log             *zap.Logger
}

func New(decodeService DecodeService, networkService NetworkService, analysisService AnalysisService,
	log *zap.Logger) *openlrAPI {
	return &openlrAPI{
		decodeService:   decodeService,
		networkService:  networkService,
		analysisService: analysisService,
		log:             log,
	}
}

func (api *openlrAPI) Routes(group *helper.RouteGroup) {
	group.GET("/decode", api.decode)
	group.GET("/analyze", api.analyze)
	group.GET("/lines", api.linesNear)
	group.GET("/lines/:id", api.line)
	group.GET("/nodes", api.nodesNear)
	group.GET("/nodes/:id/outgoing", api.outgoingLines)
	group.GET("/nodes/:id/incoming", api.incomingLines)
}

func (api *openlrAPI) HealthRoutes(router *httprouter.Router) {
	router.GET("/healthz", api.health)
}

func (api *openlrAPI) decode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	request := decodeRequest{
		Code:    query.Get("code"),
		Profile: query.Get("profile"),
	}
	if msgs := validate(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return
	}

	path, err := api.decodeService.Decode(r.Context(), request.Code, request.Profile)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": path}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) analyze(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	request := analyzeRequest{
		Code: query.Get("code"),
		Path: query.Get("path"),
	}
	if msgs := validate(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return
	}

	report, err := api.analysisService.Analyze(r.Context(), request.Code, request.Path)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": report}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) line(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	line, err := api.networkService.Line(r.Context(), p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewLineResponse(line)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// parseNear reads lat, lon and an optional radius from the query string.
func (api *openlrAPI) parseNear(w http.ResponseWriter, r *http.Request) (nearRequest, bool) {
	var (
		request nearRequest
		err     error
	)
	query := r.URL.Query()

	request.Lat, err = strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lat is required and must be a valid float"))
		return request, false
	}
	request.Lon, err = strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lon is required and must be a valid float"))
		return request, false
	}
	request.Radius = 30
	if s := query.Get("radius"); s != "" {
		request.Radius, err = strconv.ParseFloat(s, 64)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("radius must be a valid float"))
			return request, false
		}
	}
	if msgs := validate(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return request, false
	}
	return request, true
}

func (api *openlrAPI) linesNear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request, ok := api.parseNear(w, r)
	if !ok {
		return
	}

	lines, err := api.networkService.LinesNear(r.Context(), request.Lat, request.Lon, request.Radius)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewLinesResponse(lines)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) nodesNear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request, ok := api.parseNear(w, r)
	if !ok {
		return
	}

	nodes, err := api.networkService.NodesNear(r.Context(), request.Lat, request.Lon, request.Radius)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewNodesResponse(nodes)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) parseNode(w http.ResponseWriter, r *http.Request, p httprouter.Params) (int64, bool) {
	var request nodeRequest
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("node id must be a valid integer"))
		return 0, false
	}
	request.ID = id
	if msgs := validate(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return 0, false
	}
	return request.ID, true
}

func (api *openlrAPI) outgoingLines(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	node, ok := api.parseNode(w, r, p)
	if !ok {
		return
	}
	lines, err := api.networkService.OutgoingLines(r.Context(), node)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewLinesResponse(lines)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) incomingLines(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	node, ok := api.parseNode(w, r, p)
	if !ok {
		return
	}
	lines, err := api.networkService.IncomingLines(r.Context(), node)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewLinesResponse(lines)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *openlrAPI) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	roads, nodes, counted, err := api.networkService.Health(r.Context())
	if err != nil {
		api.logError(r, err)
		api.errorResponse(w, r, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	resp := healthResponse{Status: "ok"}
	if counted {
		resp.Roads, resp.Nodes = &roads, &nodes
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
