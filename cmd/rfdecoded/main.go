// rfdecoded reads a raw sample capture, runs the configured protocol
// decoders over it and publishes the decoded messages to stdout, MQTT, a
// websocket feed and an optional on-disk log.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/rfdecode"
	"github.com/cwsl/rfdecode/decoders/adsb"
	"github.com/cwsl/rfdecode/decoders/ax25"
	"github.com/cwsl/rfdecode/decoders/pocsag"
	"github.com/cwsl/rfdecode/decoders/stub"
)

const metricsPublishInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	listDecoders := flag.Bool("list", false, "List available decoders and exit")
	flag.Parse()

	registry := rfdecode.NewRegistry()
	if err := registerAll(registry); err != nil {
		log.Fatalf("[Main] Decoder registration failed: %v", err)
	}

	if *listDecoders {
		for _, desc := range registry.List() {
			kind := "audio"
			if desc.IQ {
				kind = "iq"
			}
			fmt.Printf("%-8s %-28s %s %8d Hz  %s\n", desc.ID, desc.Name, kind, desc.SampleRate, desc.Category)
		}
		return
	}

	config, err := rfdecode.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	if err := run(config, registry); err != nil {
		log.Fatalf("[Main] %v", err)
	}
}

func registerAll(r *rfdecode.Registry) error {
	if err := ax25.Register(r); err != nil {
		return err
	}
	if err := pocsag.Register(r); err != nil {
		return err
	}
	if err := adsb.Register(r); err != nil {
		return err
	}
	return stub.Register(r)
}

func run(config *rfdecode.Config, registry *rfdecode.Registry) error {
	promRegistry := prometheus.NewRegistry()
	metrics := rfdecode.NewMetrics(promRegistry)

	dispatcher := rfdecode.NewDispatcher(config.Dispatcher.QueueSize, metrics)
	for _, dc := range config.Decoders {
		dec, err := registry.Create(dc.ID, dc.Params)
		if err != nil {
			return fmt.Errorf("decoder %s: %w", dc.ID, err)
		}
		if err := dispatcher.Attach(dec); err != nil {
			return err
		}
	}

	var publisher *rfdecode.MQTTPublisher
	if config.MQTT.Enabled {
		var err error
		publisher, err = rfdecode.NewMQTTPublisher(&config.MQTT)
		if err != nil {
			return err
		}
		defer publisher.Close()

		go func() {
			ticker := time.NewTicker(metricsPublishInterval)
			defer ticker.Stop()
			for range ticker.C {
				if err := publisher.PublishMetrics(promRegistry); err != nil {
					log.Printf("[Main] Metrics publish failed: %v", err)
				}
			}
		}()
	}

	var msgLog *rfdecode.MessageLog
	if config.MessageLog.Enabled {
		var err error
		msgLog, err = rfdecode.NewMessageLog(config.MessageLog.Path, config.MessageLog.Compress)
		if err != nil {
			return err
		}
		defer msgLog.Close()
	}

	var feed *FeedHandler
	if config.Feed.Enabled {
		feed = NewFeedHandler()
		mux := http.NewServeMux()
		mux.HandleFunc("/feed", feed.HandleWebSocket)
		go func() {
			log.Printf("[Main] Websocket feed on %s/feed", config.Feed.Listen)
			if err := http.ListenAndServe(config.Feed.Listen, mux); err != nil {
				log.Printf("[Main] Feed server stopped: %v", err)
			}
		}()
		defer feed.Close()
	}

	if config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		go func() {
			log.Printf("[Main] Metrics on %s/metrics", config.Metrics.Listen)
			if err := http.ListenAndServe(config.Metrics.Listen, mux); err != nil {
				log.Printf("[Main] Metrics server stopped: %v", err)
			}
		}()
	}

	// Consume decoded messages until the dispatcher closes the stream.
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for msg := range dispatcher.Messages() {
			log.Printf("[%s] %s", msg.DecoderID, msg.Content)
			if publisher != nil {
				if err := publisher.PublishMessage(msg); err != nil {
					log.Printf("[Main] MQTT publish failed: %v", err)
				}
			}
			if msgLog != nil {
				if err := msgLog.Write(msg); err != nil {
					log.Printf("[Main] Message log write failed: %v", err)
				}
			}
			if feed != nil {
				feed.Broadcast(msg)
			}
		}
	}()

	reader, err := NewSampleReader(config.Input)
	if err != nil {
		dispatcher.Close()
		<-consumerDone
		return err
	}
	defer reader.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("[Main] Decoding %s (%s, %d Hz)", config.Input.Path, config.Input.Format, config.Input.SampleRate)
	for {
		select {
		case s := <-sig:
			log.Printf("[Main] Received %v, shutting down", s)
			dispatcher.Close()
			<-consumerDone
			return nil
		default:
		}

		buf, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			dispatcher.Close()
			<-consumerDone
			return fmt.Errorf("input read failed: %w", err)
		}
		dispatcher.Deliver(buf)
	}

	log.Printf("[Main] End of input")
	dispatcher.Close()
	<-consumerDone
	return nil
}
