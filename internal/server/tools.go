package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func outputProperties(props map[string]interface{}) map[string]interface{} {
	props["format"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"jpeg", "png"},
		"description": "Output encoding. Default jpeg",
		"default":     "jpeg",
	}
	props["quality"] = map[string]interface{}{
		"type":        "integer",
		"description": "JPEG quality 1-100. Default from server configuration (95)",
	}
	return props
}

// settingsProperties adds the enhancement switches to props.
func settingsProperties(props map[string]interface{}) map[string]interface{} {
	props["auto_correct"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Local contrast equalization of lightness (CLAHE). Default true",
		"default":     true,
	}
	props["perspective_correction"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Crop and straighten the detected photo. Default true",
		"default":     true,
	}
	props["denoise"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Edge-preserving noise reduction. Default true",
		"default":     true,
	}
	props["brightness"] = map[string]interface{}{
		"type":        "number",
		"description": "Brightness factor, 1.0 = unchanged. Default 1.0",
		"default":     1.0,
	}
	props["contrast"] = map[string]interface{}{
		"type":        "number",
		"description": "Contrast factor, 1.0 = unchanged. Default 1.0",
		"default":     1.0,
	}
	props["saturation"] = map[string]interface{}{
		"type":        "number",
		"description": "Saturation factor, 1.0 = unchanged. Default 1.0",
		"default":     1.0,
	}
	props["sharpen"] = map[string]interface{}{
		"type":        "boolean",
		"description": "3x3 sharpening. Default true",
		"default":     true,
	}
	props["restore_colors"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Revive faded prints: boost muted colors, lift shadows, soften highlights. Default false",
		"default":     false,
	}
	return props
}

func detectorProperties(props map[string]interface{}) map[string]interface{} {
	props["working_width"] = map[string]interface{}{
		"type":        "integer",
		"description": "Width the image is downscaled to before edge detection. Default 600",
		"default":     600,
	}
	props["min_area"] = map[string]interface{}{
		"type":        "number",
		"description": "Smallest accepted contour area in working-image pixels. Default 1000",
		"default":     1000,
	}
	props["epsilon"] = map[string]interface{}{
		"type":        "number",
		"description": "Polygon simplification tolerance as a fraction of the perimeter. Default 0.02",
		"default":     0.02,
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file (applying EXIF orientation) and return its dimensions, format and channel count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the upright width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "photo_detect",
			Description: "Find the four corners of a printed photo in a camera capture. Returns corners ordered top-left, top-right, bottom-right, bottom-left, with a confidence in [0,1] measuring how rectangular the quad is.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectorProperties(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "photo_detect_overlay",
			Description: "Detect the photo boundary and return the capture with the quad outlined, for checking detection visually.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": outputProperties(detectorProperties(map[string]interface{}{
					"path": pathProperty(),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as #RGB, #RRGGBB or #RRGGBBAA. Default #00FF00",
						"default":     "#00FF00",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Line width in pixels. Default 3",
						"default":     3,
					},
				})),
				"required": []string{"path"},
			},
		},
		{
			Name:        "photo_edge_map",
			Description: "Render the detector's edge map (white edges on black) at working resolution.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "number",
						"description": "Canny low threshold. Default 50",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "number",
						"description": "Canny high threshold. Default 150",
						"default":     150,
					},
					"blur_radius": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur radius before edge detection. Default 2",
						"default":     2,
					},
					"working_width": map[string]interface{}{
						"type":        "integer",
						"description": "Width the image is downscaled to first. Default 600",
						"default":     600,
					},
				},
				"required": []string{"path"},
			},
		},

		// Correction
		{
			Name:        "photo_rectify",
			Description: "Warp the region bounded by four corners onto an upright rectangle. Corners may be given in any order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": outputProperties(map[string]interface{}{
					"path": pathProperty(),
					"corners": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
						"minItems":    4,
						"maxItems":    4,
						"description": "The four corners in image pixel coordinates",
					},
				}),
				"required": []string{"path", "corners"},
			},
		},
		{
			Name:        "photo_enhance",
			Description: "Apply the enhancement stages to an image without detection or cropping. Returns the image and a report of applied and skipped stages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": outputProperties(settingsProperties(map[string]interface{}{"path": pathProperty()})),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "photo_process",
			Description: "Full scan pipeline: detect the photo, straighten it when detection is confident, then enhance. Always returns an image; falls back to the uncropped capture when no photo is found.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": outputProperties(settingsProperties(map[string]interface{}{"path": pathProperty()})),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "photo_process_batch",
			Description: "Run the full scan pipeline on several captures concurrently. Results are written to output_dir when given, otherwise returned inline.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": outputProperties(settingsProperties(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the captures",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the processed files, named <name>_scan.<ext> with _2, _3, ... added when names repeat. Created if missing",
					},
				})),
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
