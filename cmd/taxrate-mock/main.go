// Command taxrate-mock serves GET /rates?zip= for local runs, standing in
// for the sales-tax lookup service.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-ticketing/internal/taxrate"
)

var defaultRates = map[string]float64{
	"10001": 0.08875,
	"30301": 0.089,
	"60601": 0.1025,
	"94105": 0.08625,
	"98101": 0.1035,
}

func main() {
	var (
		port   = flag.String("port", "9098", "port to listen on")
		data   = flag.String("data", "", "optional JSON file mapping ZIP to rate")
		apiKey = flag.String("key", os.Getenv("TAX_RATE_API_KEY"), "required X-API-Key, empty to accept any")
		logReq = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	rates := defaultRates
	if *data != "" {
		raw, err := os.ReadFile(*data)
		if err != nil {
			log.Fatalf("read mock data: %v", err)
		}
		rates = map[string]float64{}
		if err := json.Unmarshal(raw, &rates); err != nil {
			log.Fatalf("parse mock data: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	if *logReq {
		e.Use(echomw.Logger())
	}
	e.GET("/rates", func(c echo.Context) error {
		if *apiKey != "" && c.Request().Header.Get("X-API-Key") != *apiKey {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
		}
		zip, err := taxrate.NormalizeZip(c.QueryParam("zip"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zip"})
		}
		rate, ok := rates[zip]
		if !ok {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusOK, echo.Map{"zip": zip, "rate": rate})
	})

	addr := ":" + *port
	log.Printf("mock taxrate listening on %s (%d zips)", addr, len(rates))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
