package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Filmstack API
// @version         0.1.0
// @description     Capital-stack simulation: waterfall execution, Monte Carlo risk, scenario optimization.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
